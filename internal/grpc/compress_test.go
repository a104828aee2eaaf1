package grpc

import (
	"bytes"
	"testing"
)

func TestCompressorsRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("SDFF  ..;;||**00"), 64)
	for _, name := range []string{"gzip", "snappy", "identity", ""} {
		compressor, err := CompressorByName(name)
		if err != nil {
			t.Fatalf("CompressorByName(%q): %v", name, err)
		}
		compressed, err := compressor.Compress(payload)
		if err != nil {
			t.Fatalf("%s compress: %v", compressor.Name(), err)
		}
		if compressor.Name() != "identity" && len(compressed) >= len(payload) {
			t.Fatalf("%s did not shrink a repetitive payload", compressor.Name())
		}
		decompressed, err := compressor.Decompress(compressed)
		if err != nil {
			t.Fatalf("%s decompress: %v", compressor.Name(), err)
		}
		if !bytes.Equal(decompressed, payload) {
			t.Fatalf("%s round trip mismatch", compressor.Name())
		}
	}
}

func TestCompressorByNameRejectsUnknown(t *testing.T) {
	if _, err := CompressorByName("brotli"); err == nil {
		t.Fatal("expected unknown encoding to fail")
	}
}

func TestDecompressRejectsEmptyPayload(t *testing.T) {
	for _, compressor := range []Compressor{NewGZIPCompressor(), NewSnappyCompressor()} {
		if _, err := compressor.Decompress(nil); err == nil {
			t.Fatalf("%s: expected error for empty payload", compressor.Name())
		}
	}
}

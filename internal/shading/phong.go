package shading

import (
	"math"

	"sdfterm/raymarch/internal/scene"
	"sdfterm/raymarch/internal/vecmath"
)

// NormalEpsilon is the central difference step used when estimating normals.
const NormalEpsilon = 1e-4

// Light is a point light with an RGB intensity.
type Light struct {
	Position  vecmath.Vec3
	Intensity vecmath.Vec3
}

// Material holds the Phong reflection coefficients of the rendered surface.
type Material struct {
	Ambient   vecmath.Vec3
	Diffuse   vecmath.Vec3
	Specular  vecmath.Vec3
	Shininess float64
}

// DefaultMaterial is the reddish surface the renderer draws.
func DefaultMaterial() Material {
	return Material{
		Ambient:   vecmath.Vec3{X: 0.2, Y: 0.2, Z: 0.2},
		Diffuse:   vecmath.Vec3{X: 0.7, Y: 0.2, Z: 0.2},
		Specular:  vecmath.Vec3{X: 1, Y: 1, Z: 1},
		Shininess: 10,
	}
}

var lightIntensity = vecmath.Vec3{X: 0.4, Y: 0.4, Z: 0.4}

// Lights positions the two scene lights at the given time.
// The first orbits at radius 4 in the XZ plane, the second at radius 2 in the XY plane
// at 0.37 times the angular rate.
func Lights(time float64) [2]Light {
	return [2]Light{
		{
			Position:  vecmath.Vec3{X: 4 * math.Sin(time), Y: 2, Z: 4 * math.Cos(time)},
			Intensity: lightIntensity,
		},
		{
			Position:  vecmath.Vec3{X: 2 * math.Sin(0.37*time), Y: 2 * math.Cos(0.37*time), Z: 2},
			Intensity: lightIntensity,
		},
	}
}

// EstimateNormal approximates the surface normal at p from the field gradient.
func EstimateNormal(field scene.SignedDistanceField, p vecmath.Vec3) vecmath.Vec3 {
	e := NormalEpsilon
	return vecmath.Vec3{
		X: field.Sample(vecmath.Vec3{X: p.X + e, Y: p.Y, Z: p.Z}) - field.Sample(vecmath.Vec3{X: p.X - e, Y: p.Y, Z: p.Z}),
		Y: field.Sample(vecmath.Vec3{X: p.X, Y: p.Y + e, Z: p.Z}) - field.Sample(vecmath.Vec3{X: p.X, Y: p.Y - e, Z: p.Z}),
		Z: field.Sample(vecmath.Vec3{X: p.X, Y: p.Y, Z: p.Z + e}) - field.Sample(vecmath.Vec3{X: p.X, Y: p.Y, Z: p.Z - e}),
	}.Normalize()
}

// PhongContribForLight returns the diffuse and specular colour a single light adds at p.
func PhongContribForLight(field scene.SignedDistanceField, kd, ks vecmath.Vec3, alpha float64, p, eye vecmath.Vec3, light Light) vecmath.Vec3 {
	n := EstimateNormal(field, p)
	l := light.Position.Sub(p).Normalize()
	v := eye.Sub(p).Normalize()
	r := vecmath.Reflect(l.Neg(), n).Normalize()

	dotLN := l.Dot(n)
	dotRV := r.Dot(v)

	if dotLN < 0 {
		//1.- Light sits behind the surface at this point.
		return vecmath.Vec3{}
	}
	diffuse := kd.Scale(dotLN)
	if dotRV < 0 {
		//2.- Reflection points away from the viewer so only diffuse applies.
		return light.Intensity.Mul(diffuse)
	}
	return light.Intensity.Mul(diffuse.Add(ks.Scale(math.Pow(dotRV, alpha))))
}

// PhongIllumination sums the ambient term and both light contributions at p.
func PhongIllumination(field scene.SignedDistanceField, mat Material, p, eye vecmath.Vec3, time float64) vecmath.Vec3 {
	ambient := vecmath.Vec3{X: 1, Y: 1, Z: 1}.Scale(0.5)
	color := ambient.Mul(mat.Ambient)
	for _, light := range Lights(time) {
		color = color.Add(PhongContribForLight(field, mat.Diffuse, mat.Specular, mat.Shininess, p, eye, light))
	}
	return color
}

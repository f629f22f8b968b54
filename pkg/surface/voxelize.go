package surface

import (
	"runtime"
	"sort"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

// ToModel3D converts mesh into a model3d mesh, one triangle per face.
func ToModel3D(mesh *models.Mesh) *model3d.Mesh {
	triangles := make([]*model3d.Triangle, len(mesh.Faces))
	for i := range mesh.Faces {
		t := mesh.Triangle(i)
		triangles[i] = &model3d.Triangle{coord(t[0]), coord(t[1]), coord(t[2])}
	}
	return model3d.NewMeshTriangles(triangles)
}

func coord(v r3.Vec) model3d.Coord3D {
	return model3d.Coord3D{X: v.X, Y: v.Y, Z: v.Z}
}

// rayDirections are fixed, axis-free directions so rays do not run along
// lattice planes of the mesh.
var rayDirections = []model3d.Coord3D{
	{X: -0.40475415, Y: 0.86174632, Z: -0.30588783},
	{X: -0.81025101, Y: 0.38452447, Z: -0.44230559},
	{X: 0.67074042, Y: -0.60098173, Z: 0.43465877},
}

// Voxelize samples the solid bounded by mesh at the n³ lattice points
// i*spacing. A point is inside when most rays cast from it cross the
// surface an odd number of times. Zero spacing means 1/n.
func Voxelize(mesh *models.Mesh, n int, spacing float64, cores int) (*models.Grid, error) {
	if mesh == nil {
		return nil, reconerr.New(reconerr.InvalidInput, "mesh is nil")
	}
	if n <= 0 {
		return nil, reconerr.New(reconerr.InvalidInput, "resolution must be positive, got %d", n)
	}
	if err := mesh.Validate(); err != nil {
		return nil, reconerr.Wrap(reconerr.InvalidInput, err, "voxelize")
	}
	if spacing == 0 {
		spacing = 1 / float64(n)
	}
	if cores <= 0 {
		cores = runtime.NumCPU()
	}

	grid := models.NewGrid(n)
	if mesh.NumFaces() == 0 {
		return grid, nil
	}

	collider := model3d.MeshToCollider(ToModel3D(mesh))
	min, max := collider.Min(), collider.Max()
	epsilon := max.Sub(min).Norm() * 1e-8

	essentials.ConcurrentMap(cores, n, func(x int) {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				c := model3d.Coord3D{
					X: float64(x) * spacing,
					Y: float64(y) * spacing,
					Z: float64(z) * spacing,
				}
				if c.X < min.X || c.Y < min.Y || c.Z < min.Z || c.X > max.X || c.Y > max.Y || c.Z > max.Z {
					continue
				}
				odd := 0
				for _, d := range rayDirections {
					if crossings(collider, c, d, epsilon)%2 == 1 {
						odd++
					}
				}
				grid.Set(x, y, z, 2*odd > len(rayDirections))
			}
		}
	})
	return grid, nil
}

// crossings counts distinct surface hits along a ray, merging hits that
// land on a shared edge or vertex of neighbouring triangles.
func crossings(collider model3d.Collider, origin, direction model3d.Coord3D, epsilon float64) int {
	var scales []float64
	collider.RayCollisions(&model3d.Ray{
		Origin:    origin,
		Direction: direction,
	}, func(r model3d.RayCollision) {
		scales = append(scales, r.Scale)
	})
	if len(scales) == 0 {
		return 0
	}
	sort.Float64s(scales)

	count := 1
	for i := 1; i < len(scales); i++ {
		if scales[i]-scales[i-1] > epsilon {
			count++
		}
	}
	return count
}

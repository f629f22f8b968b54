// Package export writes reconstructed meshes and voxel point clouds to
// standard 3D file formats.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/fileformats"
	"gonum.org/v1/gonum/spatial/r3"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/surface"
)

// Format names an output file format.
type Format string

const (
	FormatSTL    Format = "stl"
	FormatPLY    Format = "ply"
	FormatOBJ    Format = "obj"
	FormatOFF    Format = "off"
	FormatPoints Format = "points"
)

// Formats lists every supported format.
var Formats = []Format{FormatSTL, FormatPLY, FormatOBJ, FormatOFF, FormatPoints}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown output format %q", name)
}

// FormatFromPath picks a mesh format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", errors.Errorf("cannot infer format of %q", path)
	}
	f, err := ParseFormat(ext)
	if err != nil || f == FormatPoints {
		return "", errors.Errorf("cannot infer format of %q", path)
	}
	return f, nil
}

// Save writes mesh to path. An empty format is inferred from the file
// extension. FormatPoints writes the mesh vertices as a point cloud.
func Save(path string, mesh *models.Mesh, format Format) error {
	if format == "" {
		var err error
		if format, err = FormatFromPath(path); err != nil {
			return err
		}
	}

	switch format {
	case FormatSTL:
		return SaveSTL(path, mesh)
	case FormatPLY:
		return writeFile(path, func(w io.Writer) error { return WritePLY(w, mesh) })
	case FormatOBJ:
		return writeFile(path, func(w io.Writer) error { return WriteOBJ(w, mesh) })
	case FormatOFF:
		return writeFile(path, func(w io.Writer) error { return WriteOFF(w, mesh) })
	case FormatPoints:
		return SavePointCloud(path, mesh.Vertices)
	}
	return errors.Errorf("unknown output format %q", format)
}

// SaveSTL writes mesh as a binary STL file.
func SaveSTL(path string, mesh *models.Mesh) error {
	if err := surface.ToModel3D(mesh).SaveGroupedSTL(path); err != nil {
		return errors.Wrap(err, "save STL")
	}
	return nil
}

// SavePointCloud writes points as a vertex-only PLY file.
func SavePointCloud(path string, points []r3.Vec) error {
	return writeFile(path, func(w io.Writer) error { return WritePointCloudPLY(w, points) })
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrap(f.Close(), "close output file")
}

// WritePLY writes mesh as ASCII PLY with per-vertex normals when present.
func WritePLY(w io.Writer, mesh *models.Mesh) error {
	hasNormals := hasNormals(mesh)

	vertex := &fileformats.PLYElement{
		Name:       "vertex",
		Count:      int64(len(mesh.Vertices)),
		Properties: floatProperties("x", "y", "z"),
	}
	if hasNormals {
		vertex.Properties = append(vertex.Properties, floatProperties("nx", "ny", "nz")...)
	}
	header := &fileformats.PLYHeader{
		Format:   fileformats.PLYFormatASCII,
		Elements: []*fileformats.PLYElement{vertex},
	}
	// The writer only flushes once the last declared row is written, so an
	// empty face element is left out.
	if len(mesh.Faces) > 0 {
		header.Elements = append(header.Elements, fileformats.NewPLYElementFace(int64(len(mesh.Faces))))
	}

	pw, err := fileformats.NewPLYWriter(w, header)
	if err != nil {
		return err
	}
	for i, v := range mesh.Vertices {
		row := plyVec(nil, v)
		if hasNormals {
			row = plyVec(row, mesh.Normals[i])
		}
		if err := pw.Write(row); err != nil {
			return err
		}
	}
	for _, f := range mesh.Faces {
		row := []fileformats.PLYValue{fileformats.PLYValueList{
			Length: fileformats.PLYValueUint8{Value: 3},
			Values: []fileformats.PLYValue{
				fileformats.PLYValueInt32{Value: int32(f[0])},
				fileformats.PLYValueInt32{Value: int32(f[1])},
				fileformats.PLYValueInt32{Value: int32(f[2])},
			},
		}}
		if err := pw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePointCloudPLY writes points as an ASCII PLY file without faces.
func WritePointCloudPLY(w io.Writer, points []r3.Vec) error {
	header := &fileformats.PLYHeader{
		Format: fileformats.PLYFormatASCII,
		Elements: []*fileformats.PLYElement{{
			Name:       "vertex",
			Count:      int64(len(points)),
			Properties: floatProperties("x", "y", "z"),
		}},
	}
	pw, err := fileformats.NewPLYWriter(w, header)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := pw.Write(plyVec(nil, p)); err != nil {
			return err
		}
	}
	return nil
}

func floatProperties(names ...string) []*fileformats.PLYProperty {
	props := make([]*fileformats.PLYProperty, len(names))
	for i, name := range names {
		props[i] = &fileformats.PLYProperty{Name: name, ElemType: fileformats.PLYPropertyTypeFloat}
	}
	return props
}

func plyVec(row []fileformats.PLYValue, v r3.Vec) []fileformats.PLYValue {
	return append(row,
		fileformats.PLYValueFloat32{Value: float32(v.X)},
		fileformats.PLYValueFloat32{Value: float32(v.Y)},
		fileformats.PLYValueFloat32{Value: float32(v.Z)},
	)
}

func hasNormals(mesh *models.Mesh) bool {
	return len(mesh.Normals) > 0 && len(mesh.Normals) == len(mesh.Vertices)
}

// WriteOBJ writes mesh as Wavefront OBJ. Indices are 1-based.
func WriteOBJ(w io.Writer, mesh *models.Mesh) error {
	obj := &fileformats.OBJFile{
		Vertices: make([][3]float64, len(mesh.Vertices)),
	}
	for i, v := range mesh.Vertices {
		obj.Vertices[i] = [3]float64{v.X, v.Y, v.Z}
	}
	withNormals := hasNormals(mesh)
	if withNormals {
		obj.Normals = make([][3]float64, len(mesh.Normals))
		for i, n := range mesh.Normals {
			obj.Normals[i] = [3]float64{n.X, n.Y, n.Z}
		}
	}

	group := &fileformats.OBJFileFaceGroup{Faces: make([][3][3]int, len(mesh.Faces))}
	for i, f := range mesh.Faces {
		for j, idx := range f {
			group.Faces[i][j][0] = idx + 1
			if withNormals {
				group.Faces[i][j][2] = idx + 1
			}
		}
	}
	obj.FaceGroups = []*fileformats.OBJFileFaceGroup{group}
	return obj.Write(w)
}

// WriteOFF writes mesh in the Object File Format. model3d only reads OFF.
func WriteOFF(w io.Writer, mesh *models.Mesh) error {
	ew := &errWriter{w: w}
	ew.printf("OFF\n%d %d 0\n", len(mesh.Vertices), len(mesh.Faces))
	for _, v := range mesh.Vertices {
		ew.printf("%g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, f := range mesh.Faces {
		ew.printf("3 %d %d %d\n", f[0], f[1], f[2])
	}
	return ew.err
}

// errWriter keeps the first write error so callers check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

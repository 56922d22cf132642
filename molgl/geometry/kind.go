// Package geometry holds the typed vertex data of every primitive kind and
// the per-kind Utils that turn it into versioned render values.
package geometry

import (
	"errors"
	"fmt"

	"github.com/molcanvas/canvas3d/molgl/core"
)

var (
	ErrUnknownKind         = errors.New("unknown geometry kind")
	ErrUnknownVolumeFormat = errors.New("unknown volume format")
)

type Kind int

const (
	KindMesh Kind = iota
	KindSpheres
	KindCylinders
	KindPoints
	KindLines
	KindText
	KindImage
	KindDirectVolume
)

var kindNames = map[Kind]string{
	KindMesh:         "mesh",
	KindSpheres:      "spheres",
	KindCylinders:    "cylinders",
	KindPoints:       "points",
	KindLines:        "lines",
	KindText:         "text",
	KindImage:        "image",
	KindDirectVolume: "direct-volume",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("parse %q: %w", s, ErrUnknownKind)
}

// IsVolume reports whether objects of the kind render in the volume group.
func (k Kind) IsVolume() bool {
	return k == KindDirectVolume
}

// Geometry is the collaborator supplied vertex data of one render object.
type Geometry interface {
	Kind() Kind
	GroupCount() int
	VertexCount() int
	// BoundingSphere is computed in object space.
	BoundingSphere() core.Sphere3D
}

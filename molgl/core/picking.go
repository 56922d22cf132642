package core

import "fmt"

// MaxPickingID is the largest id representable in a 24 bit pick attachment;
// the value above it is the clear value meaning "nothing".
const (
	MaxPickingID = 1<<24 - 2
	nullPickRGB  = 1<<24 - 1
)

// PickingID identifies a picked object, instance and group.
type PickingID struct {
	ObjectID   int
	InstanceID int
	GroupID    int
}

func (p PickingID) String() string {
	return fmt.Sprintf("%d/%d/%d", p.ObjectID, p.InstanceID, p.GroupID)
}

// PackIntToRGB encodes v into three normalized channels.
func PackIntToRGB(v int) [3]float32 {
	if v < 0 || v > MaxPickingID {
		v = nullPickRGB
	}
	return [3]float32{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}
}

// UnpackRGBToInt decodes three normalized channels; the clear value decodes to -1.
func UnpackRGBToInt(r, g, b float32) int {
	v := int(r*255+0.5)<<16 | int(g*255+0.5)<<8 | int(b*255+0.5)
	if v == nullPickRGB {
		return -1
	}
	return v
}

// PackDepth stores a [0,1] depth into three normalized channels.
func PackDepth(d float32) [3]float32 {
	if d >= 1 {
		return [3]float32{1, 1, 1}
	}
	if d < 0 {
		d = 0
	}
	return PackIntToRGB(int(d * MaxPickingID))
}

func UnpackDepth(r, g, b float32) float32 {
	v := UnpackRGBToInt(r, g, b)
	if v < 0 {
		return 1
	}
	return float32(v) / MaxPickingID
}

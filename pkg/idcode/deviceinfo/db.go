package deviceinfo

import "github.com/OpenTraceLab/nerojtag/pkg/idcode"

// key ignores the version nibble, which changes between silicon revisions.
type key struct {
	ManufacturerCode uint16
	PartNumber       uint16
}

var db = make(map[key]DeviceInfo)

func register(mfg, part uint16, info DeviceInfo) {
	db[key{ManufacturerCode: mfg, PartNumber: part}] = info
}

// Lookup returns what is known about rawID.
func Lookup(rawID uint32) DeviceInfo {
	id := idcode.Parse(rawID)
	if info, ok := db[key{ManufacturerCode: id.ManufacturerCode(), PartNumber: id.PartNumber}]; ok {
		info.IDCode = id
		return info
	}
	return DeviceInfo{
		IDCode:      id,
		Name:        "Unknown device",
		Description: "No entry in device database",
		Kind:        KindUnknown,
	}
}

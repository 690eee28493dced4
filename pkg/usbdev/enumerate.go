package usbdev

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// Info describes an attached probe.
type Info struct {
	VendorID  uint16
	ProductID uint16
	Bus       int
	Address   int
	Speed     string
}

// Label returns a user-friendly description for the probe.
func (i Info) Label() string {
	return fmt.Sprintf("NeroJTAG %s on bus %03d address %03d (%s)",
		FormatID(i.VendorID, i.ProductID), i.Bus, i.Address, i.Speed)
}

// Enumerate lists attached devices matching vid:pid without opening them.
func Enumerate(ctx context.Context, vid, pid uint16) ([]Info, error) {
	var results []Info
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if uint16(desc.Vendor) == vid && uint16(desc.Product) == pid {
			results = append(results, Info{
				VendorID:  vid,
				ProductID: pid,
				Bus:       desc.Bus,
				Address:   desc.Address,
				Speed:     desc.Speed.String(),
			})
		}
		return false
	})
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, err
	}
	return results, ctx.Err()
}

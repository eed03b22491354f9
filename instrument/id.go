package instrument

import "fmt"

// ID is a content-derived instrument identifier. Lo always holds the ID's
// low-order 64 bits (digest bytes 0-7 under IDWidth64, bytes 8-15 under
// IDWidth128); Hi is populated only under IDWidth128, otherwise zero. Two IDs compare equal with ==, so ID is a valid map key.
type ID struct {
	Hi uint64
	Lo uint64
}

func (id ID) String() string {
	if id.Hi == 0 {
		return fmt.Sprintf("%016x", id.Lo)
	}
	return fmt.Sprintf("%016x%016x", id.Hi, id.Lo)
}

// IsZero reports whether id is the zero value, used as the registry's "not
// found" sentinel return alongside an explicit bool.
func (id ID) IsZero() bool { return id.Hi == 0 && id.Lo == 0 }

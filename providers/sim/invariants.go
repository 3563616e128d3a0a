package sim

import (
	"fmt"
	"net"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/validate"
)

// RegisterInvariants installs the simulator's resource invariants: CIDR
// syntax on networks, subnet CIDR containment within the parent VPC, and a
// sizing warning on instances.
func RegisterInvariants(reg *validate.Registry) {
	reg.Register(KindVPC, checkVPC)
	reg.Register(KindSubnet, checkSubnet)
	reg.Register(KindInstance, checkInstance)
}

func checkVPC(res *ir.Resource, _ validate.DepView) []validate.Violation {
	cidr, _ := res.Attributes["cidr"].(string)
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return []validate.Violation{{
			Address:  res.Address(),
			Severity: validate.Fatal,
			Message:  fmt.Sprintf("invalid cidr %q", cidr),
		}}
	}
	return nil
}

func checkSubnet(res *ir.Resource, deps validate.DepView) []validate.Violation {
	var out []validate.Violation

	cidr, _ := res.Attributes["cidr"].(string)
	subnetIP, subnetNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return []validate.Violation{{
			Address:  res.Address(),
			Severity: validate.Fatal,
			Message:  fmt.Sprintf("invalid cidr %q", cidr),
		}}
	}

	// Containment can only be checked when the parent is declared in the
	// same document.
	ref, ok := res.Attributes["vpc"].(ir.Ref)
	if !ok {
		return out
	}
	parent, ok := deps.Dependency(ref.Address())
	if !ok {
		return out
	}
	parentCIDR, _ := parent.Attributes["cidr"].(string)
	_, parentNet, err := net.ParseCIDR(parentCIDR)
	if err != nil {
		// The vpc invariant reports the parent's own violation.
		return out
	}

	if !parentNet.Contains(subnetIP) || !containsNet(parentNet, subnetNet) {
		out = append(out, validate.Violation{
			Address:  res.Address(),
			Severity: validate.Fatal,
			Message:  fmt.Sprintf("subnet cidr %s is not contained in vpc %s cidr %s", cidr, ref.Address(), parentCIDR),
		})
	}
	return out
}

func checkInstance(res *ir.Resource, _ validate.DepView) []validate.Violation {
	size, ok := res.Attributes["size"].(float64)
	if ok && size > 64 {
		return []validate.Violation{{
			Address:  res.Address(),
			Severity: validate.Warning,
			Message:  fmt.Sprintf("size %v exceeds the largest simulated machine type", size),
		}}
	}
	return nil
}

// containsNet reports whether outer fully contains inner.
func containsNet(outer, inner *net.IPNet) bool {
	outerOnes, _ := outer.Mask.Size()
	innerOnes, _ := inner.Mask.Size()
	return outerOnes <= innerOnes && outer.Contains(inner.IP)
}

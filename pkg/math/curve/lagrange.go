package curve

import "github.com/taurusgroup/mpc-client/pkg/party"

// FromID returns the scalar corresponding to a party number.
func FromID(id party.ID) *Scalar {
	return NewScalarUInt32(uint32(id))
}

// Lagrange returns the Lagrange coefficient ℓ_j(0) for the party j over the
// interpolation set ids:
//
//	         x₀ ⋅⋅⋅ x_k
//	ℓ_j(0) = ---------------------------
//	         (x₀ - x_j) ⋅⋅⋅ (x_k - x_j)
//
// where the x_m are the other party numbers in ids.
func Lagrange(ids party.IDSlice, j party.ID) *Scalar {
	num := NewScalarUInt32(1)
	denum := NewScalarUInt32(1)
	xJ := FromID(j)

	for _, id := range ids {
		if id == j {
			continue
		}
		xM := FromID(id)
		num.Multiply(num, xM)
		xM.Subtract(xM, xJ)
		denum.Multiply(denum, xM)
	}

	denum.Invert(denum)
	return num.Multiply(num, denum)
}

package dkg

import (
	"io"

	"github.com/taurusgroup/mpc-client/pkg/math/curve"
)

// polynomial holds the coefficients of a polynomial over the scalar field,
// constant term first.
type polynomial struct {
	coefficients []*curve.Scalar
}

// newPolynomial samples a random polynomial of the given degree.
func newPolynomial(rand io.Reader, degree int) (*polynomial, error) {
	coefficients := make([]*curve.Scalar, degree+1)
	for k := range coefficients {
		c, err := curve.NewScalarRandom(rand)
		if err != nil {
			return nil, err
		}
		coefficients[k] = c
	}
	return &polynomial{coefficients: coefficients}, nil
}

// evaluate returns f(x) using Horner's rule.
func (p *polynomial) evaluate(x *curve.Scalar) *curve.Scalar {
	result := curve.NewScalar()
	for k := len(p.coefficients) - 1; k >= 0; k-- {
		result.Multiply(result, x)
		result.Add(result, p.coefficients[k])
	}
	return result
}

// commitments returns the Feldman commitments aₖ·G to the coefficients.
func (p *polynomial) commitments() []*curve.Point {
	out := make([]*curve.Point, len(p.coefficients))
	for k, c := range p.coefficients {
		out[k] = c.ActOnBase()
	}
	return out
}

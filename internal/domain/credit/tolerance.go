package credit

import "github.com/shopspring/decimal"

// DefaultEpsilon is the rounding tolerance, in currency units, applied to every
// comparison of amounts in this package.
var DefaultEpsilon = decimal.New(1, -2)

// Tolerance compares amounts with an epsilon band. An amount equal to epsilon
// counts as zero: outstanding means residual > epsilon, paid means
// amountPaid >= face - epsilon, and allocation stops once remaining <= epsilon.
type Tolerance struct {
	Epsilon decimal.Decimal
}

// NewTolerance returns a Tolerance using eps, falling back to DefaultEpsilon for non-positive values.
func NewTolerance(eps decimal.Decimal) Tolerance {
	if eps.LessThanOrEqual(decimal.Zero) {
		eps = DefaultEpsilon
	}
	return Tolerance{Epsilon: eps}
}

// DefaultTolerance returns the tolerance with DefaultEpsilon
func DefaultTolerance() Tolerance {
	return Tolerance{Epsilon: DefaultEpsilon}
}

// IsZero reports whether amount is effectively zero (amount <= epsilon).
func (t Tolerance) IsZero(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(t.epsilon())
}

// Covers reports whether paid settles face (paid >= face - epsilon).
func (t Tolerance) Covers(paid, face decimal.Decimal) bool {
	return paid.GreaterThanOrEqual(face.Sub(t.epsilon()))
}

// Exceeds reports whether paid overshoots face by more than epsilon.
func (t Tolerance) Exceeds(paid, face decimal.Decimal) bool {
	return paid.GreaterThan(face.Add(t.epsilon()))
}

// Equal reports whether a and b differ by no more than epsilon.
func (t Tolerance) Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(t.epsilon())
}

func (t Tolerance) epsilon() decimal.Decimal {
	if t.Epsilon.LessThanOrEqual(decimal.Zero) {
		return DefaultEpsilon
	}
	return t.Epsilon
}

package opcode

import (
	"fmt"
	"math/big"

	"github.com/synerthink/dotlanth/pkg/arch"
)

// MaxPowExponent bounds BigIntPow's exponent to cap the cost of
// exponentiation, matching the original bigint.rs's documented ceiling.
const MaxPowExponent = 10000

// BigInt implements the BigInt opcode family, available from Arch128.
// Reproduces the operation catalogue and edge cases exercised by the
// original's bigint.rs test module (negative sqrt, zero modulus/divisor,
// i64 overflow on ToInt, negative exponent on Pow).
func BigInt(k Kind, tier arch.Tier, s *Stack) error {
	if !k.AvailableAt(tier) {
		return fmt.Errorf("%w: %v requires %v, executor is %v", ErrUnsupported, k, k.RequiredTier(), tier)
	}

	switch k {
	case BigIntFromInt:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		i, err := v.Int64()
		if err != nil {
			return err
		}
		s.Push(BigIntVal(big.NewInt(i)))
		return nil

	case BigIntToInt:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		i, err := v.Int64()
		if err != nil {
			return err
		}
		s.Push(Float(float64(i)))
		return nil

	case BigIntSqrt, BigIntAbs, BigIntIsZero, BigIntIsNegative:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		return unaryBigInt(k, v, s)
	default:
		b, err := s.Pop()
		if err != nil {
			return err
		}
		a, err := s.Pop()
		if err != nil {
			return err
		}
		return binaryBigInt(k, a, b, s)
	}
}


func unaryBigInt(k Kind, v Value, s *Stack) error {
	x := v.Big()
	switch k {
	case BigIntSqrt:
		if x.Sign() < 0 {
			return fmt.Errorf("%w: sqrt of negative BigInt", ErrInvalidOperand)
		}
		s.Push(BigIntVal(new(big.Int).Sqrt(x)))
	case BigIntAbs:
		s.Push(BigIntVal(new(big.Int).Abs(x)))
	case BigIntIsZero:
		if x.Sign() == 0 {
			s.Push(Float(1))
		} else {
			s.Push(Float(0))
		}
	case BigIntIsNegative:
		if x.Sign() < 0 {
			s.Push(Float(1))
		} else {
			s.Push(Float(0))
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, k)
	}
	return nil
}

func binaryBigInt(k Kind, a, b Value, s *Stack) error {
	x, y := a.Big(), b.Big()
	switch k {
	case BigIntAdd:
		s.Push(BigIntVal(new(big.Int).Add(x, y)))
	case BigIntSub:
		s.Push(BigIntVal(new(big.Int).Sub(x, y)))
	case BigIntMul:
		s.Push(BigIntVal(new(big.Int).Mul(x, y)))
	case BigIntDiv:
		if y.Sign() == 0 {
			return ErrDivisionByZero
		}
		s.Push(BigIntVal(new(big.Int).Quo(x, y)))
	case BigIntMod:
		if y.Sign() == 0 {
			return ErrDivisionByZero
		}
		s.Push(BigIntVal(new(big.Int).Rem(x, y)))
	case BigIntPow:
		if y.Sign() < 0 {
			return fmt.Errorf("%w: negative exponent", ErrInvalidOperand)
		}
		if y.Cmp(big.NewInt(MaxPowExponent)) > 0 {
			return fmt.Errorf("%w: exponent exceeds ceiling of %d", ErrInvalidOperand, MaxPowExponent)
		}
		s.Push(BigIntVal(new(big.Int).Exp(x, y, nil)))
	case BigIntGcd:
		s.Push(BigIntVal(new(big.Int).GCD(nil, nil, new(big.Int).Abs(x), new(big.Int).Abs(y))))
	case BigIntLcm:
		if x.Sign() == 0 || y.Sign() == 0 {
			s.Push(BigIntVal(big.NewInt(0)))
			return nil
		}
		g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(x), new(big.Int).Abs(y))
		l := new(big.Int).Div(new(big.Int).Abs(x), g)
		l.Mul(l, new(big.Int).Abs(y))
		s.Push(BigIntVal(l))
	case BigIntCmp:
		s.Push(Float(float64(x.Cmp(y))))
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, k)
	}
	return nil
}

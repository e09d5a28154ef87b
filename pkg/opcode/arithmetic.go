package opcode

import (
	"fmt"
	"math"
)

// Arithmetic implements the base Arithmetic opcode family over float64
// scalars on the operand stack.
func Arithmetic(k Kind, s *Stack) error {
	switch k {
	case Add, Sub, Mul, Div, Mod, Cmp:
		b, err := s.Pop()
		if err != nil {
			return err
		}
		a, err := s.Pop()
		if err != nil {
			return err
		}
		return binaryArithmetic(k, a, b, s)
	case Neg:
		a, err := s.Pop()
		if err != nil {
			return err
		}
		s.Push(Float(-a.Float64()))
		return nil
	default:
		return fmt.Errorf("%w: %v is not an arithmetic opcode", ErrUnsupported, k)
	}
}

func binaryArithmetic(k Kind, a, b Value, s *Stack) error {
	af, bf := a.Float64(), b.Float64()
	switch k {
	case Add:
		s.Push(Float(af + bf))
	case Sub:
		s.Push(Float(af - bf))
	case Mul:
		s.Push(Float(af * bf))
	case Div:
		if bf == 0 {
			return ErrDivisionByZero
		}
		s.Push(Float(af / bf))
	case Mod:
		if bf == 0 {
			return ErrDivisionByZero
		}
		s.Push(Float(math.Mod(af, bf)))
	case Cmp:
		switch {
		case af < bf:
			s.Push(Float(-1))
		case af > bf:
			s.Push(Float(1))
		default:
			s.Push(Float(0))
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, k)
	}
	return nil
}

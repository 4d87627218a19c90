package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Challenger produces the arithmetic question shown on the signup form.
type Challenger interface {
	NewChallenge() (question string, answer int)
}

// MathCaptcha 简单的算术验证码，答案存入 session
type MathCaptcha struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMathCaptcha() *MathCaptcha {
	return &MathCaptcha{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewChallenge returns a display string (e.g. "3 + 5") and the integer answer.
// Subtraction never goes negative.
func (s *MathCaptcha) NewChallenge() (string, int) {
	s.mu.Lock()
	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)
	op := s.rnd.Intn(2)
	s.mu.Unlock()

	if op == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}

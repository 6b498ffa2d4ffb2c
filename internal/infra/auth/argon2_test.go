package auth

import (
	"errors"
	"strings"
	"testing"
)

// Cheap parameters keep the tests fast.
var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashPasswordWithParams("hunter2", testParams)
	if err != nil {
		t.Fatalf("HashPasswordWithParams() error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Errorf("encoded = %q", encoded)
	}

	ok, err := VerifyPassword("hunter2", encoded)
	if err != nil || !ok {
		t.Errorf("VerifyPassword(correct) = %v, %v", ok, err)
	}
	ok, err = VerifyPassword("hunter3", encoded)
	if err != nil || ok {
		t.Errorf("VerifyPassword(wrong) = %v, %v", ok, err)
	}
}

func TestHash_SaltIsRandom(t *testing.T) {
	a, _ := HashPasswordWithParams("same", testParams)
	b, _ := HashPasswordWithParams("same", testParams)
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestVerify_Malformed(t *testing.T) {
	tests := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$bad$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	}
	for _, in := range tests {
		if _, err := VerifyPassword("x", in); !errors.Is(err, ErrMalformedHash) {
			t.Errorf("VerifyPassword(%q) err = %v, want ErrMalformedHash", in, err)
		}
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Memory != 65536 || p.Iterations != 3 || p.Parallelism != 2 {
		t.Errorf("DefaultParams() = %+v", p)
	}
}

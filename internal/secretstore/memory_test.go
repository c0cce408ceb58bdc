package secretstore

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreGetSecret(t *testing.T) {
	m := NewMemoryStore(map[string]Secret{
		"k1": {PrincipalID: "k1", Key: []byte("secret1")},
	})

	s, err := m.GetSecret(context.Background(), "k1")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if string(s.Key) != "secret1" {
		t.Errorf("Key = %q, want secret1", s.Key)
	}
}

func TestMemoryStoreUnknownPrincipal(t *testing.T) {
	m := NewMemoryStore(nil)
	_, err := m.GetSecret(context.Background(), "ghost")
	if err != ErrUnknownPrincipal {
		t.Fatalf("err = %v, want ErrUnknownPrincipal", err)
	}
}

func TestMemoryStoreDisabledPrincipal(t *testing.T) {
	m := NewMemoryStore(map[string]Secret{
		"k1": {PrincipalID: "k1", Key: []byte("secret1"), Disabled: true},
	})
	_, err := m.GetSecret(context.Background(), "k1")
	if err != ErrUnknownPrincipal {
		t.Fatalf("err = %v, want ErrUnknownPrincipal for disabled principal", err)
	}
}

func TestMemoryStoreReplaceIsAtomic(t *testing.T) {
	m := NewMemoryStore(map[string]Secret{"k1": {PrincipalID: "k1", Key: []byte("a")}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.GetSecret(context.Background(), "k1")
		}()
	}
	m.Replace(map[string]Secret{"k2": {PrincipalID: "k2", Key: []byte("b")}})
	wg.Wait()

	if _, err := m.GetSecret(context.Background(), "k1"); err != ErrUnknownPrincipal {
		t.Errorf("k1 should be gone after Replace")
	}
	if s, err := m.GetSecret(context.Background(), "k2"); err != nil || string(s.Key) != "b" {
		t.Errorf("k2 should be present after Replace, got %v, %v", s, err)
	}
}

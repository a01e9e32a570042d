package sig_test

import (
	"testing"

	"github.com/axent-pl/drmkit/common/sig"
)

func TestSigAlg_ToGoJWT(t *testing.T) {
	tests := []struct {
		name    string
		alg     sig.SigAlg
		want    string
		wantErr bool
	}{
		{name: "RS256", alg: sig.SigAlgRS256, want: "RS256"},
		{name: "ES384", alg: sig.SigAlgES384, want: "ES384"},
		{name: "PS512", alg: sig.SigAlgPS512, want: "PS512"},
		{name: "HS256", alg: sig.SigAlgHS256, want: "HS256"},
		{name: "RS1 has no jwt method", alg: sig.SigAlgRS1, wantErr: true},
		{name: "unknown", alg: sig.SigAlgUnknown, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotErr := tt.alg.ToGoJWT()
			if gotErr != nil {
				if !tt.wantErr {
					t.Errorf("ToGoJWT() failed: %v", gotErr)
				}
				return
			}
			if tt.wantErr {
				t.Fatal("ToGoJWT() succeeded unexpectedly")
			}
			if got.Alg() != tt.want {
				t.Errorf("ToGoJWT() = %v, want %v", got.Alg(), tt.want)
			}
		})
	}
}

func TestFromOAuth(t *testing.T) {
	for _, name := range []string{"RS1", "RS256", "ES256", "ES512", "PS256", "HS256", "HS512"} {
		alg, err := sig.FromOAuth(name)
		if err != nil {
			t.Fatalf("FromOAuth(%s) failed: %v", name, err)
		}
		back, err := alg.ToOAuth()
		if err != nil || back != name {
			t.Errorf("ToOAuth() = %s, %v, want %s", back, err, name)
		}
	}
	if _, err := sig.FromOAuth("none"); err == nil {
		t.Error("FromOAuth(none) succeeded unexpectedly")
	}
}

func TestSigAlg_IsSymmetric(t *testing.T) {
	if !sig.SigAlgHS256.IsSymmetric() {
		t.Error("HS256 should be symmetric")
	}
	if sig.SigAlgRS256.IsSymmetric() {
		t.Error("RS256 should not be symmetric")
	}
}

package domain

import (
	"errors"
	"testing"
)

func TestParseCollection(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Collection
		wantErr bool
	}{
		{name: "clients", in: "clients", want: CollectionClients},
		{name: "uppercase", in: "INVOICES", want: CollectionInvoices},
		{name: "padded", in: " jobs ", want: CollectionJobs},
		{name: "singular", in: "client", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCollection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCollection) {
					t.Errorf("ParseCollection(%q) error = %v, want ErrUnknownCollection", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCollection(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCollection(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateImportMode(t *testing.T) {
	for _, mode := range []string{"merge", "overwrite", "auto"} {
		if err := ValidateImportMode(mode); err != nil {
			t.Errorf("ValidateImportMode(%q) unexpected error: %v", mode, err)
		}
	}
	for _, mode := range []string{"", "Merge", "replace"} {
		if err := ValidateImportMode(mode); err == nil {
			t.Errorf("ValidateImportMode(%q) expected error", mode)
		}
	}
}

func TestValidateOrphanPolicy(t *testing.T) {
	for _, policy := range []string{"skip", "strict", "allow"} {
		if err := ValidateOrphanPolicy(policy); err != nil {
			t.Errorf("ValidateOrphanPolicy(%q) unexpected error: %v", policy, err)
		}
	}
	if err := ValidateOrphanPolicy("resurrect"); err == nil {
		t.Error("ValidateOrphanPolicy(resurrect) expected error")
	}
}

func TestCheckETag(t *testing.T) {
	if err := CheckETag(CollectionJobs, 3, 3); err != nil {
		t.Errorf("CheckETag() unexpected error: %v", err)
	}

	err := CheckETag(CollectionJobs, 3, 4)
	var mismatch *ETagMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("CheckETag() error = %v, want *ETagMismatchError", err)
	}
	if mismatch.Expected != 3 || mismatch.Actual != 4 || mismatch.Collection != CollectionJobs {
		t.Errorf("mismatch = %+v", mismatch)
	}
}

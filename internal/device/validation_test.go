package device

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDescriptor(t *testing.T) {
	valid := func() *Descriptor {
		return testDescriptor("dev-1", "Valid Device", 0x28de)
	}

	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr error
	}{
		{
			name:    "valid descriptor",
			mutate:  func(d *Descriptor) {},
			wantErr: nil,
		},
		{
			name:    "empty name",
			mutate:  func(d *Descriptor) { d.Name = "" },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "name too long",
			mutate:  func(d *Descriptor) { d.Name = strings.Repeat("x", maxNameLength+1) },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "unknown kind",
			mutate:  func(d *Descriptor) { d.Kind = "toaster" },
			wantErr: ErrInvalidKind,
		},
		{
			name:    "zero polling rate",
			mutate:  func(d *Descriptor) { d.PollingRateHz = 0 },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "negative polling rate",
			mutate:  func(d *Descriptor) { d.PollingRateHz = -60 },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "polling rate above bound",
			mutate:  func(d *Descriptor) { d.PollingRateHz = maxPollingRateHz + 1 },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "negative latency",
			mutate:  func(d *Descriptor) { d.LatencyMs = -1 },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "zero latency is allowed",
			mutate:  func(d *Descriptor) { d.LatencyMs = 0 },
			wantErr: nil,
		},
		{
			name:    "zero buffer size",
			mutate:  func(d *Descriptor) { d.BufferSize = 0 },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "empty capability list",
			mutate:  func(d *Descriptor) { d.Capabilities = []Channel{} },
			wantErr: ErrInvalidDescriptor,
		},
		{
			name: "invalid channel name",
			mutate: func(d *Descriptor) {
				d.Capabilities = append(d.Capabilities, Channel{Name: "Trigger-2", Kind: ValueScalar})
			},
			wantErr: ErrInvalidChannel,
		},
		{
			name: "unknown value kind",
			mutate: func(d *Descriptor) {
				d.Capabilities = append(d.Capabilities, Channel{Name: "dial", Kind: "complex128"})
			},
			wantErr: ErrInvalidChannel,
		},
		{
			name: "duplicate channel",
			mutate: func(d *Descriptor) {
				d.Capabilities = append(d.Capabilities, Channel{Name: "trigger", Kind: ValueScalar})
			},
			wantErr: ErrInvalidChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)

			err := ValidateDescriptor(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDescriptor() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDescriptor() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("nil descriptor", func(t *testing.T) {
		if err := ValidateDescriptor(nil); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("ValidateDescriptor(nil) error = %v, want ErrInvalidDescriptor", err)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()
	if a == "" || b == "" {
		t.Fatal("GenerateID() returned empty string")
	}
	if a == b {
		t.Error("GenerateID() returned duplicate IDs")
	}
}

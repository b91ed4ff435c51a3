package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsAllocationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "allocation error",
			err:  &AllocationError{PartitionKey: "store_1", Err: errors.New("sequence down")},
			want: true,
		},
		{
			name: "wrapped allocation error",
			err:  fmt.Errorf("save order: %w", NewAllocationError("store_1", errors.New("timeout"))),
			want: true,
		},
		{
			name: "storage error",
			err:  NewStorageError("insert", "sales_order", errors.New("duplicate key")),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsAllocationError(tt.err)
			if got != tt.want {
				t.Errorf("IsAllocationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "storage error",
			err:  NewStorageError("update", "sales_invoice", errors.New("connection reset")),
			want: true,
		},
		{
			name: "joined storage error",
			err:  errors.Join(NewStorageError("insert", "sales_order", nil), errors.New("extra context")),
			want: true,
		},
		{
			name: "allocation error",
			err:  NewAllocationError("store_2", errors.New("boom")),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsStorageError(tt.err)
			if got != tt.want {
				t.Errorf("IsStorageError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStorageError_KeepsExisting(t *testing.T) {
	inner := NewStorageError("insert", "sales_order", ErrEntityNotFound)
	wrapped := NewStorageError("update", "sales_invoice", fmt.Errorf("context: %w", inner))

	var storageErr *StorageError
	if !errors.As(wrapped, &storageErr) {
		t.Fatal("expected StorageError in chain")
	}
	if storageErr.Op != "insert" || storageErr.Table != "sales_order" {
		t.Fatalf("expected original storage error to be kept, got %+v", storageErr)
	}
	if !IsNotFound(wrapped) {
		t.Fatal("expected not found cause to be preserved")
	}
}

func TestNewAllocationError_KeepsExisting(t *testing.T) {
	inner := &AllocationError{PartitionKey: "store_1"}
	if got := NewAllocationError("store_9", inner); got != error(inner) {
		t.Fatalf("expected same allocation error, got %v", got)
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	allocErr := NewAllocationError("store_1", errors.New("boom"))
	storageErr := NewStorageError("insert", "sales_order", errors.New("boom"))

	if IsStorageError(allocErr) {
		t.Error("allocation error must not be a storage error")
	}
	if IsAllocationError(storageErr) {
		t.Error("storage error must not be an allocation error")
	}
}

func TestAsUserError(t *testing.T) {
	err := fmt.Errorf("gateway: %w", NewUserError("The payment method does not support %s.", "fetch"))

	userErr, ok := AsUserError(err)
	if !ok {
		t.Fatal("expected user error in chain")
	}
	if userErr.Message != "The payment method does not support fetch." {
		t.Fatalf("unexpected message: %q", userErr.Message)
	}

	if _, ok := AsUserError(errors.New("plain")); ok {
		t.Fatal("plain error must not be a user error")
	}
}

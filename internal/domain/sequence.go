package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	partitionKeyPrefix = "store_"
	// IncrementPadLength — ширина числовой части increment id.
	IncrementPadLength = 8
)

// ParsePartitionKey извлекает идентификатор магазина из ключа store_<id>.
func ParsePartitionKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, partitionKeyPrefix)
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPartitionKey, key)
	}
	storeID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || storeID < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPartitionKey, key)
	}
	return storeID, nil
}

// FormatIncrementID собирает increment id: префикс магазина и значение,
// дополненное нулями до IncrementPadLength (store 1, 123 -> "100000123").
func FormatIncrementID(storeID, value int64) string {
	return fmt.Sprintf("%d%0*d", storeID, IncrementPadLength, value)
}

// IncrementForPartition форматирует значение последовательности для ключа партиции.
func IncrementForPartition(partitionKey string, value int64) (string, error) {
	storeID, err := ParsePartitionKey(partitionKey)
	if err != nil {
		return "", err
	}
	return FormatIncrementID(storeID, value), nil
}

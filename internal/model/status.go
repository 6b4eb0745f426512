package model

// Status is the stock status shared by perishable entities.
type Status string

const (
	StatusInStock    Status = "IN_STOCK"
	StatusLess       Status = "LESS"
	StatusOutOfStock Status = "OUT_OF_STOCK"
	StatusExpired    Status = "EXPIRED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusInStock, StatusLess, StatusOutOfStock, StatusExpired:
		return true
	}
	return false
}

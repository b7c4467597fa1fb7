package services

import "errors"

// Common service errors
var (
	ErrNotFound         = errors.New("registro no encontrado")
	ErrInvalidPassword  = errors.New("contraseña inválida")
	ErrUnauthorized     = errors.New("no autorizado")
	ErrInvalidState     = errors.New("transición de estado inválida")
	ErrDuplicate        = errors.New("registro duplicado")
	ErrInvalidTerms     = errors.New("condiciones del préstamo inválidas")
	ErrInvalidAmount    = errors.New("monto inválido")
	ErrLoanNotOpen      = errors.New("el préstamo no está activo")
	ErrClientHasLoans   = errors.New("el cliente tiene préstamos abiertos")
	ErrBusinessInactive = errors.New("el negocio está inactivo")
)

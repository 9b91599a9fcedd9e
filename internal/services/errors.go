package services

import (
	"errors"

	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound           = errors.New("registro não encontrado")
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrInactiveAccount    = errors.New("conta inativa ou suspensa")
	ErrInvalidToken       = errors.New("token inválido")
	ErrExpiredToken       = errors.New("token expirado")
	ErrUnauthorized       = errors.New("não autorizado")
	ErrForbidden          = errors.New("acesso negado")
	ErrInvalidState       = errors.New("transição de status inválida")
	ErrNotEditable        = errors.New("projeção arquivada não pode ser alterada")
	ErrDuplicate          = errors.New("registro duplicado")
	ErrInUse              = errors.New("registro vinculado a projeções")
	ErrLinkUnavailable    = errors.New("link expirado ou desativado")
	ErrNoRecipient        = errors.New("cliente sem e-mail cadastrado")
	ErrEmailDisabled      = errors.New("envio de e-mails desativado")
	ErrInvalidIndexType   = errors.New("índice econômico desconhecido")
	ErrNoIndexData        = errors.New("sem dados para o índice")
	ErrCollectionDisabled = errors.New("coleta de índices desativada")
	ErrInvalidInput       = errors.New("dados inválidos")
)

// notFound maps gorm's missing-row error to ErrNotFound and passes anything else through
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

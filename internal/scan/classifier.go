// Package scan разбирает данные, поступающие со сканера штрихкодов.
package scan

import (
	"errors"
	"strings"
	"unicode"
)

// IntentKind - тип намерения, распознанного по отсканированной строке.
type IntentKind int

const (
	IntentOrderLookup IntentKind = iota + 1
	IntentMarkCode
)

func (k IntentKind) String() string {
	switch k {
	case IntentOrderLookup:
		return "order_lookup"
	case IntentMarkCode:
		return "mark_code"
	default:
		return "unknown"
	}
}

// Intent - результат классификации строки сканера.
type Intent struct {
	Kind  IntentKind
	Value string
}

var (
	ErrEmptyToken   = errors.New("empty scan token")
	ErrEmptyOrderID = errors.New("empty order id")
)

const (
	// GroupSeparator отделяет основную часть кода маркировки от идентификаторов применения.
	GroupSeparator = '\x1d'

	orderPrefix     = "ORDER_"
	markMinLength   = 16
	markDigitWindow = 10
)

// Classify определяет, является ли строка кодом маркировки или номером заказа.
// Правило эвристическое: длинная строка с префиксом 01, словом mark или цифрой
// в первых символах считается кодом маркировки.
func Classify(token string) (Intent, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Intent{}, ErrEmptyToken
	}

	if looksLikeMark(token) {
		return Intent{Kind: IntentMarkCode, Value: token}, nil
	}

	if strings.HasPrefix(token, orderPrefix) {
		id := strings.TrimSpace(strings.TrimPrefix(token, orderPrefix))
		if id == "" {
			return Intent{}, ErrEmptyOrderID
		}
		return Intent{Kind: IntentOrderLookup, Value: id}, nil
	}

	return Intent{Kind: IntentOrderLookup, Value: token}, nil
}

func looksLikeMark(token string) bool {
	if len(token) < markMinLength {
		return false
	}
	if strings.HasPrefix(token, "01") {
		return true
	}
	if strings.Contains(strings.ToLower(token), "mark") {
		return true
	}
	head := token
	if len(head) > markDigitWindow {
		head = head[:markDigitWindow]
	}
	return strings.IndexFunc(head, unicode.IsDigit) >= 0
}

// NormalizeMarkCode оставляет только основную часть кода до первого разделителя GS.
func NormalizeMarkCode(code string) string {
	code = strings.TrimLeft(code, string(GroupSeparator))
	if i := strings.IndexByte(code, GroupSeparator); i >= 0 {
		code = code[:i]
	}
	return strings.TrimSpace(code)
}

package wallet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blocknative/walletprovider/structs"
)

// Methods answered by the wallet middleware.
const (
	MethodCoinbase           = "eth_coinbase"
	MethodAccounts           = "eth_accounts"
	MethodSendTransaction    = "eth_sendTransaction"
	MethodSignTransaction    = "eth_signTransaction"
	MethodSign               = "eth_sign"
	MethodPersonalSign       = "personal_sign"
	MethodSignTypedData      = "eth_signTypedData"
	MethodSignTypedDataV4    = "eth_signTypedData_v4"
	MethodSendRawTransaction = "eth_sendRawTransaction"
)

var walletMethods = []string{
	MethodCoinbase,
	MethodAccounts,
	MethodSendTransaction,
	MethodSignTransaction,
	MethodSign,
	MethodPersonalSign,
	MethodSignTypedData,
	MethodSignTypedDataV4,
}

// IsWalletMethod reports whether method is answered by the wallet middleware.
func IsWalletMethod(method string) bool {
	for _, m := range walletMethods {
		if m == method {
			return true
		}
	}
	return false
}

// EnabledMethods is the operator controlled set of wallet methods that may be
// served. Everything is enabled by default.
type EnabledMethods struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

func NewEnabledMethods(disabled ...string) (*EnabledMethods, error) {
	em := &EnabledMethods{disabled: make(map[string]bool)}
	for _, m := range disabled {
		if !em.SetBool(m, false) {
			return nil, fmt.Errorf("unknown wallet method %q", m)
		}
	}
	return em, nil
}

// GetBool returns true when method is a wallet method and is enabled.
func (em *EnabledMethods) GetBool(method string) bool {
	if !IsWalletMethod(method) {
		return false
	}
	em.mu.RLock()
	defer em.mu.RUnlock()
	return !em.disabled[method]
}

// SetBool toggles method. It returns false for methods the wallet does not serve.
func (em *EnabledMethods) SetBool(method string, enabled bool) bool {
	if !IsWalletMethod(method) {
		return false
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if enabled {
		delete(em.disabled, method)
	} else {
		em.disabled[method] = true
	}
	return true
}

// Status lists every wallet method with its state.
func (em *EnabledMethods) Status() map[string]bool {
	em.mu.RLock()
	defer em.mu.RUnlock()

	st := make(map[string]bool, len(walletMethods))
	for _, m := range walletMethods {
		st[m] = !em.disabled[m]
	}
	return st
}

// Disabled returns the sorted list of disabled methods.
func (em *EnabledMethods) Disabled() []string {
	em.mu.RLock()
	defer em.mu.RUnlock()

	d := make([]string, 0, len(em.disabled))
	for m := range em.disabled {
		d = append(d, m)
	}
	sort.Strings(d)
	return d
}

// OnConfigChange replaces the disabled set when the configuration is reloaded.
func (em *EnabledMethods) OnConfigChange(c structs.OldNew) error {
	if c.Name != "DisabledMethods" {
		return nil
	}

	methods, ok := c.New.([]string)
	if !ok {
		return fmt.Errorf("unexpected type %T for %s", c.New, c.Name)
	}

	disabled := make(map[string]bool, len(methods))
	for _, m := range methods {
		if !IsWalletMethod(m) {
			return fmt.Errorf("unknown wallet method %q", m)
		}
		disabled[m] = true
	}

	em.mu.Lock()
	em.disabled = disabled
	em.mu.Unlock()
	return nil
}

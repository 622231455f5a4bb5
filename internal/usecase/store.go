// File: internal/usecase/store.go
package usecase

import (
	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
)

// StoreDirectory resolves store codes to their provider credentials.
type StoreDirectory struct {
	stores      map[string]model.Store
	defaultCode string
}

func NewStoreDirectory(defaultCode string, stores ...model.Store) *StoreDirectory {
	d := &StoreDirectory{stores: make(map[string]model.Store, len(stores)), defaultCode: defaultCode}
	for _, s := range stores {
		d.stores[s.Code] = s
	}
	return d
}

// Lookup returns the store for code. An empty code selects the default store.
func (d *StoreDirectory) Lookup(code string) (model.Store, error) {
	if code == "" {
		code = d.defaultCode
	}
	s, ok := d.stores[code]
	if !ok {
		return model.Store{}, domain.ErrStoreNotFound
	}
	return s, nil
}

func (d *StoreDirectory) Default() (model.Store, error) { return d.Lookup("") }

// ForOrder returns the store owning o, provided it is the store the caller is scoped
// to. An order of another store is reported as domain.ErrOrderNotFound.
func (d *StoreDirectory) ForOrder(callerStore string, o *model.Order) (model.Store, error) {
	caller, err := d.Lookup(callerStore)
	if err != nil {
		return model.Store{}, err
	}
	owner, err := d.Lookup(o.StoreCode)
	if err != nil {
		return model.Store{}, err
	}
	if owner.Code != caller.Code {
		return model.Store{}, domain.ErrOrderNotFound
	}
	return owner, nil
}

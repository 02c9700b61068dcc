package apisnap

import (
	"github.com/jward/apisnap/internal/collect"
	"github.com/jward/apisnap/internal/compare"
	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/model"
	"github.com/jward/apisnap/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// API. External consumers use these names; no conversion is needed.

type Store = store.Store
type Unit = decl.Unit
type Version = model.Version
type Module = model.Module
type Violation = collect.Violation
type Compatibility = compare.Compatibility
type ExtensionGroup = store.ExtensionGroup

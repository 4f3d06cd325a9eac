package graph

import (
	"cmp"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[TypeInfo]struct{})
)

// RegisterOp adds the operator kind to the registry. It is meant to be called from init() functions.
//
// It panics if the kind is already registered.
func RegisterOp(info TypeInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, found := registry[info]; found {
		exceptions.Panicf("graph.RegisterOp(%s): op already registered", info)
	}
	registry[info] = struct{}{}
	klog.V(2).Infof("registered op %s", info)
}

// LookupOp returns whether an operator kind with the given name and version is registered.
func LookupOp(name string, version uint64) (TypeInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info := TypeInfo{Name: name, Version: version}
	_, found := registry[info]
	return info, found
}

// RegisteredOps returns all registered operator kinds, sorted by name and version.
func RegisteredOps() []TypeInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	infos := make([]TypeInfo, 0, len(registry))
	for info := range registry {
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b TypeInfo) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	return infos
}

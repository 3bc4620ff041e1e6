package web

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin"
)

// Router is an object responsible for registering one or more path handlers
// on the engine. Applications implement it once per resource and hand the
// implementations to Register or Discover.
type Router interface {
	Routes(e *gin.Engine)
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(e *gin.Engine)

func (f RouterFunc) Routes(e *gin.Engine) { f(e) }

var (
	routersMu sync.Mutex
	routers   []Router
)

// Register adds routers to the package registry. Every server built
// afterwards mounts them, so applications typically call Register from init
// functions next to their handler code.
func Register(rs ...Router) {
	routersMu.Lock()
	defer routersMu.Unlock()
	routers = append(routers, rs...)
}

func registered() []Router {
	routersMu.Lock()
	defer routersMu.Unlock()
	out := make([]Router, len(routers))
	copy(out, routers)
	return out
}

// Discover inspects values with reflection and registers every Router it
// finds. A value implementing Router is registered directly; a struct or
// pointer to struct is walked through its exported fields, and slices and
// arrays through their elements. This lets an application keep its routers
// as fields of a single wiring struct and hand the whole thing over.
// It returns the number of routers registered.
func Discover(values ...any) int {
	n := 0
	for _, v := range values {
		n += discoverValue(reflect.ValueOf(v))
	}
	return n
}

func discoverValue(v reflect.Value) int {
	if !v.IsValid() {
		return 0
	}

	if v.CanInterface() {
		if r, ok := v.Interface().(Router); ok && !isNilValue(v) {
			Register(r)
			return 1
		}
		// A value whose pointer type implements Router still counts when
		// the value is addressable.
		if v.CanAddr() {
			if r, ok := v.Addr().Interface().(Router); ok {
				Register(r)
				return 1
			}
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return discoverValue(v.Elem())
	case reflect.Struct:
		n := 0
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			n += discoverValue(v.Field(i))
		}
		return n
	case reflect.Slice, reflect.Array:
		n := 0
		for i := 0; i < v.Len(); i++ {
			n += discoverValue(v.Index(i))
		}
		return n
	}
	return 0
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// resetRouters clears the package registry. Test helper.
func resetRouters() {
	routersMu.Lock()
	defer routersMu.Unlock()
	routers = nil
}

package binds

import (
	"io"
	"reflect"
	"sync"

	"github.com/reusee/slots/slotvm"
)

// Cell is the host value stored in a foreign block.
// The tag is checked before the block's data is treated as a Cell[T].
// Finalization may empty a cell from a cleanup goroutine, so tag and borrow are guarded by mu.
// A *Cell should not be kept past the context that produced it.
type Cell[T any] struct {
	mu     sync.Mutex
	tag    reflect.Type
	borrow int
	value  T
}

// anyCell lets untyped code read the tag of any Cell[T].
type anyCell interface {
	cellTag() reflect.Type
	staticTag() reflect.Type
	isNil() bool
}

var anyCellType = reflect.TypeFor[anyCell]()

func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{
		tag:   reflect.TypeFor[T](),
		value: value,
	}
}

func (c *Cell[T]) cellTag() reflect.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tag
}

func (*Cell[T]) staticTag() reflect.Type {
	return reflect.TypeFor[T]()
}

func (c *Cell[T]) isNil() bool {
	return c == nil
}

// cellSize is the block size requested from the VM for a Cell[T].
func cellSize[T any]() int {
	return int(reflect.TypeFor[Cell[T]]().Size())
}

func CellFromBlock[T any](block *slotvm.ForeignBlock) (*Cell[T], error) {
	if block == nil {
		return nil, ErrNullPtr
	}
	return cellFrom[T](block.Data)
}

func cellFrom[T any](data any) (*Cell[T], error) {
	if data == nil {
		return nil, ErrNullPtr
	}
	tagged, ok := data.(anyCell)
	if !ok {
		return nil, ErrForeignType
	}
	if tagged.isNil() {
		return nil, ErrNullPtr
	}
	if tagged.cellTag() != reflect.TypeFor[T]() {
		return nil, ErrForeignType
	}
	cell, ok := data.(*Cell[T])
	if !ok {
		return nil, ErrForeignType
	}
	return cell, nil
}

// Ref is a shared borrow. Value must not be mutated through it.
type Ref[T any] struct {
	cell *Cell[T]
}

func (r *Ref[T]) Value() *T {
	return &r.cell.value
}

func (r *Ref[T]) Release() {
	if r.cell == nil {
		return
	}
	r.cell.mu.Lock()
	r.cell.borrow--
	r.cell.mu.Unlock()
	r.cell = nil
}

// RefMut is an exclusive borrow.
type RefMut[T any] struct {
	cell *Cell[T]
}

func (r *RefMut[T]) Value() *T {
	return &r.cell.value
}

func (r *RefMut[T]) Release() {
	if r.cell == nil {
		return
	}
	r.cell.mu.Lock()
	r.cell.borrow = 0
	r.cell.mu.Unlock()
	r.cell = nil
}

func (c *Cell[T]) TryBorrow() (*Ref[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == nil {
		return nil, ErrForeignType
	}
	if c.borrow < 0 {
		return nil, ErrBorrow
	}
	c.borrow++
	return &Ref[T]{
		cell: c,
	}, nil
}

func (c *Cell[T]) TryBorrowMut() (*RefMut[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == nil {
		return nil, ErrForeignType
	}
	if c.borrow != 0 {
		return nil, ErrBorrowMut
	}
	c.borrow = -1
	return &RefMut[T]{
		cell: c,
	}, nil
}

// take empties the cell. It reports false if the cell was already emptied.
func (c *Cell[T]) take() (value T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == nil {
		return value, false
	}
	value = c.value
	var zero T
	c.value = zero
	c.tag = nil
	c.borrow = 0
	return value, true
}

func closeValue[T any](value *T) error {
	if v := reflect.ValueOf(any(*value)); !v.IsValid() ||
		v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	if closer, ok := any(*value).(io.Closer); ok {
		return closer.Close()
	}
	if closer, ok := any(value).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

package scene

import "github.com/molcanvas/canvas3d/molgl/renderable"

// queue is an insertion ordered set of render objects keyed by id.
type queue struct {
	items []*renderable.RenderObject
	index map[int]struct{}
}

func (q *queue) has(o *renderable.RenderObject) bool {
	_, ok := q.index[o.ID]
	return ok
}

func (q *queue) push(o *renderable.RenderObject) {
	if q.index == nil {
		q.index = make(map[int]struct{})
	}
	if q.has(o) {
		return
	}
	q.index[o.ID] = struct{}{}
	q.items = append(q.items, o)
}

func (q *queue) pop() *renderable.RenderObject {
	o := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.index, o.ID)
	return o
}

func (q *queue) delete(o *renderable.RenderObject) {
	if !q.has(o) {
		return
	}
	delete(q.index, o.ID)
	for i, x := range q.items {
		if x.ID == o.ID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *queue) len() int { return len(q.items) }

func (q *queue) reset() {
	q.items = nil
	clear(q.index)
}

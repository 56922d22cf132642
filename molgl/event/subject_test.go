package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectDelivery(t *testing.T) {
	s := NewSubject[int]()
	var got []int
	sub := s.Subscribe(func(v int) { got = append(got, v) })

	s.Next(1)
	s.Next(2)
	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Next(3)

	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 0, s.ObserverCount())
}

func TestBehaviorReplaysValue(t *testing.T) {
	s := NewBehavior(7)
	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })
	s.Next(8)
	assert.Equal(t, []int{7, 8}, got)
	assert.Equal(t, 8, s.Value())
}

func TestUnsubscribeDuringNext(t *testing.T) {
	s := NewSubject[string]()
	var calls int
	var sub Subscription
	sub = s.Subscribe(func(string) {
		calls++
		sub.Unsubscribe()
	})
	s.Subscribe(func(string) { calls++ })

	s.Next("a")
	s.Next("b")
	assert.Equal(t, 3, calls)
}

func TestGroupAndClose(t *testing.T) {
	s := NewSubject[int]()
	var g Group
	g.Add(s.Subscribe(func(int) {}), s.Subscribe(func(int) {}))
	assert.Equal(t, 2, s.ObserverCount())
	g.Unsubscribe()
	g.Unsubscribe()
	assert.Equal(t, 0, s.ObserverCount())

	s.Close()
	s.Subscribe(func(int) { t.Fatal("closed subject delivered") })
	s.Next(1)
}

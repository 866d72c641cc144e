package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

func userMessage(id, text string) protocol.Message {
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart(text)})
	msg.MessageID = id
	return msg
}

func TestInMemoryStore_HistoryCreatesEmpty(t *testing.T) {
	store := NewInMemoryStore()
	assert.Empty(t, store.History("ctx-1"))
}

func TestInMemoryStore_AppendIfAbsent(t *testing.T) {
	store := NewInMemoryStore()

	assert.True(t, store.AppendIfAbsent("ctx-1", userMessage("m1", "hello")))
	assert.True(t, store.AppendIfAbsent("ctx-1", userMessage("m2", "world")))

	history := store.History("ctx-1")
	require.Len(t, history, 2)
	assert.Equal(t, "m1", history[0].MessageID)
	assert.Equal(t, "m2", history[1].MessageID)
}

func TestInMemoryStore_AppendIfAbsentIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()

	assert.True(t, store.AppendIfAbsent("ctx-1", userMessage("m1", "hello")))
	assert.False(t, store.AppendIfAbsent("ctx-1", userMessage("m1", "hello again")))

	history := store.History("ctx-1")
	require.Len(t, history, 1)
}

func TestInMemoryStore_ContextsAreIsolated(t *testing.T) {
	store := NewInMemoryStore()

	store.AppendIfAbsent("ctx-1", userMessage("m1", "one"))
	store.AppendIfAbsent("ctx-2", userMessage("m1", "two"))

	assert.Len(t, store.History("ctx-1"), 1)
	assert.Len(t, store.History("ctx-2"), 1)
}

func TestInMemoryStore_HistoryReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	store.AppendIfAbsent("ctx-1", userMessage("m1", "hello"))

	history := store.History("ctx-1")
	history[0].MessageID = "mutated"

	assert.Equal(t, "m1", store.History("ctx-1")[0].MessageID)
}

func TestInMemoryStore_ConcurrentAppend(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := fmt.Sprintf("ctx-%d", i%5)
			store.AppendIfAbsent(ctx, userMessage(fmt.Sprintf("m%d", i), "text"))
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 5; i++ {
		total += len(store.History(fmt.Sprintf("ctx-%d", i)))
	}
	assert.Equal(t, 50, total)
}

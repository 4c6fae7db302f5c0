package cache

import (
	"testing"
	"time"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/plan"
)

func TestOpCacheKeyedRoundTrip(t *testing.T) {
	c := New()
	hash := ComputeInputHash([]blueprintvalue.RecordedValue{blueprintvalue.IntVal(1)})

	if _, ok := c.Get(plan.OpId(1), hash); ok {
		t.Fatalf("Get: found an entry before Insert")
	}

	c.Insert(plan.OpId(1), hash, blueprintvalue.StringVal("result"))

	got, ok := c.Get(plan.OpId(1), hash)
	if !ok {
		t.Fatalf("Get: not found after Insert")
	}
	if !got.Equal(blueprintvalue.StringVal("result")) {
		t.Errorf("Get() = %v, want %v", got, blueprintvalue.StringVal("result"))
	}
}

func TestOpCacheLatestLayerIgnoresInputHash(t *testing.T) {
	c := New()
	c.Insert(plan.OpId(5), "hash-a", blueprintvalue.IntVal(10))
	c.Insert(plan.OpId(5), "hash-b", blueprintvalue.IntVal(20))

	got, ok := c.GetValue(plan.OpId(5))
	if !ok {
		t.Fatalf("GetValue: not found")
	}
	if !got.Equal(blueprintvalue.IntVal(20)) {
		t.Errorf("GetValue() = %v, want most recent insert (20)", got)
	}
}

func TestOpCacheInvalidateClearsOnlyTheLatestLayer(t *testing.T) {
	c := New()
	hash := ComputeInputHash(nil)
	c.Insert(plan.OpId(2), hash, blueprintvalue.BoolVal(true))

	c.Invalidate(plan.OpId(2))

	if _, ok := c.GetValue(plan.OpId(2)); ok {
		t.Errorf("GetValue: found entry after Invalidate")
	}
	if _, ok := c.Get(plan.OpId(2), hash); !ok {
		t.Errorf("Get: keyed entry was removed by Invalidate, want it retained until TTL")
	}
}

func TestOpCacheExpiresByTTL(t *testing.T) {
	c := NewWithLimits(DefaultCapacity, 1*time.Millisecond)
	hash := ComputeInputHash(nil)
	c.Insert(plan.OpId(3), hash, blueprintvalue.IntVal(1))

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(plan.OpId(3), hash); ok {
		t.Errorf("Get: entry did not expire after TTL")
	}
}

func TestOpCacheEvictsOverCapacity(t *testing.T) {
	// One entry per shard at most, so the second distinct op for the same
	// shard evicts the first once capacity is exceeded. Easiest to observe
	// with shardCount-many entries forced into a single shard's budget by
	// giving the cache a tiny aggregate capacity.
	c := NewWithLimits(shardCount, DefaultTTL) // 1 entry per shard

	hash := ComputeInputHash(nil)
	// Insert enough ops that at least one shard receives two entries.
	for i := 0; i < shardCount*4; i++ {
		c.Insert(plan.OpId(i), hash, blueprintvalue.IntVal(int64(i)))
	}

	if c.Len() > shardCount {
		t.Errorf("Len() = %d, want at most %d (one per shard)", c.Len(), shardCount)
	}
}

func TestComputeInputHashDeterministicAndOrderSensitive(t *testing.T) {
	a := []blueprintvalue.RecordedValue{blueprintvalue.IntVal(1), blueprintvalue.StringVal("x")}
	b := []blueprintvalue.RecordedValue{blueprintvalue.IntVal(1), blueprintvalue.StringVal("x")}
	if ComputeInputHash(a) != ComputeInputHash(b) {
		t.Errorf("ComputeInputHash: identical sequences hashed differently")
	}

	c := []blueprintvalue.RecordedValue{blueprintvalue.StringVal("x"), blueprintvalue.IntVal(1)}
	if ComputeInputHash(a) == ComputeInputHash(c) {
		t.Errorf("ComputeInputHash: reordered sequences hashed the same")
	}
}

func TestComputeInputHashDictOrderInsensitive(t *testing.T) {
	a := []blueprintvalue.RecordedValue{
		blueprintvalue.DictVal(map[string]blueprintvalue.RecordedValue{"a": blueprintvalue.IntVal(1), "b": blueprintvalue.IntVal(2)}),
	}
	b := []blueprintvalue.RecordedValue{
		blueprintvalue.DictVal(map[string]blueprintvalue.RecordedValue{"b": blueprintvalue.IntVal(2), "a": blueprintvalue.IntVal(1)}),
	}
	if ComputeInputHash(a) != ComputeInputHash(b) {
		t.Errorf("ComputeInputHash: dict insertion order affected the hash")
	}
}

func TestComputeInputHashDistinguishesEmptyListFromEmptyDict(t *testing.T) {
	list := []blueprintvalue.RecordedValue{blueprintvalue.ListVal(nil)}
	dict := []blueprintvalue.RecordedValue{blueprintvalue.DictVal(nil)}
	if ComputeInputHash(list) == ComputeInputHash(dict) {
		t.Errorf("ComputeInputHash: empty list and empty dict collided")
	}
}

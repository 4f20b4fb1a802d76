package cache_test

import (
	"testing"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/engine/cache"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"
)

// TestStore_Properties drives random operation sequences and checks the accounting
// and lease invariants after every step.
func TestStore_Properties(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f"}
	ctrl := gomock.NewController(t)
	log := quietLogger(ctrl)

	rapid.Check(t, func(rt *rapid.T) {
		budget := rapid.Int64Range(1, 100).Draw(rt, "budget")
		offload := rapid.Bool().Draw(rt, "offload")
		sizes := make(map[string]int64, len(names))
		for _, name := range names {
			sizes[name] = rapid.Int64Range(0, 60).Draw(rt, "size_"+name)
		}

		s := cache.NewStore(cache.Options{Budget: budget, SequentialOffload: offload}, newPlacement(), log, nil)
		ctx := t.Context()
		leases := make(map[string][]*cache.Lease)
		pickName := rapid.SampledFrom(names)

		rt.Repeat(map[string]func(*rapid.T){
			"get": func(rt *rapid.T) {
				name := pickName.Draw(rt, "name")
				misses := s.Stats().Misses
				_, err := s.GetOrLoad(ctx, key(name), sized(sizes[name]))
				if err != nil {
					rt.Fatalf("get %s: %v", name, err)
				}
				if s.Stats().Misses > misses {
					checkInsertBudget(rt, s, key(name))
				}
			},
			"acquire": func(rt *rapid.T) {
				name := pickName.Draw(rt, "name")
				lease, err := s.Acquire(ctx, key(name), sized(sizes[name]))
				if err != nil {
					rt.Fatalf("acquire %s: %v", name, err)
				}
				leases[name] = append(leases[name], lease)
			},
			"release": func(rt *rapid.T) {
				name := pickName.Draw(rt, "name")
				held := leases[name]
				if len(held) == 0 {
					rt.Skip("nothing leased")
				}
				before := s.Stats().ResidentBytes
				if err := held[0].Release(ctx); err != nil {
					rt.Fatalf("release %s: %v", name, err)
				}
				leases[name] = held[1:]
				if after := s.Stats().ResidentBytes; after != before {
					rt.Fatalf("release changed resident bytes from %d to %d", before, after)
				}
			},
			"invalidate": func(rt *rapid.T) {
				name := pickName.Draw(rt, "name")
				err := s.Invalidate(ctx, key(name))
				busy := len(leases[name]) > 0
				if busy && err == nil {
					rt.Fatalf("invalidate of leased %s succeeded", name)
				}
				if !busy && err != nil {
					rt.Fatalf("invalidate of idle %s: %v", name, err)
				}
			},
			"evict": func(rt *rapid.T) {
				s.EvictToBudget(ctx)
				if s.Stats().ResidentBytes > budget && len(s.Candidates()) > 0 {
					rt.Fatalf("over budget with evictable entries left: %v", s.Candidates())
				}
			},
			"": func(rt *rapid.T) {
				checkInvariants(rt, s, leases)
			},
		})

		for _, held := range leases {
			for _, lease := range held {
				if err := lease.Release(ctx); err != nil {
					rt.Fatalf("final release: %v", err)
				}
			}
		}
	})
}

// checkInsertBudget verifies that after an insert the store is within budget, or only
// the inserted entry remains evictable.
func checkInsertBudget(rt *rapid.T, s *cache.Store, inserted domain.CanonicalKey) {
	stats := s.Stats()
	if stats.ResidentBytes <= stats.Budget {
		return
	}
	for _, k := range s.Candidates() {
		if k != inserted {
			rt.Fatalf("over budget after inserting %s with %s still evictable", inserted, k)
		}
	}
}

func checkInvariants(rt *rapid.T, s *cache.Store, leases map[string][]*cache.Lease) {
	states := s.States()

	var resident int64
	for _, info := range s.Snapshot() {
		resident += info.Size
	}
	if got := s.Stats().ResidentBytes; got != resident {
		rt.Fatalf("resident bytes %d, entries sum to %d", got, resident)
	}

	for name, held := range leases {
		if len(held) == 0 {
			continue
		}
		state, ok := states[key(name)]
		if !ok {
			rt.Fatalf("leased %s is not resident", name)
		}
		if state.Refs != len(held) {
			rt.Fatalf("%s has %d refs, %d leases open", name, state.Refs, len(held))
		}
		if state.Tier != domain.TierActive {
			rt.Fatalf("leased %s is %s", name, state.Tier)
		}
	}

	for k, state := range states {
		if state.Pins != 0 {
			rt.Fatalf("%s still pinned between operations", k)
		}
	}

	for _, k := range s.Candidates() {
		if states[k].Refs > 0 {
			rt.Fatalf("leased %s is an eviction candidate", k)
		}
	}
}

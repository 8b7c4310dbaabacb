package executor

import (
	"testing"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/dsl"
	"github.com/aretw0/pubflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graph(t *testing.T, declare func(b *dsl.Builder)) *registry.Registry {
	t.Helper()
	b := dsl.New()
	declare(b)
	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestNewPlan_ClosureAndOrder(t *testing.T) {
	reg := graph(t, func(b *dsl.Builder) {
		b.Add("assemble").DependsOn("resolve")
		b.Add("resolve").Command("pub", "get").MustRunAfter("cleanIndex")
		b.Add("cleanIndex").Delete(".packages")
		b.Add("clean").DependsOn("cleanIndex")
		b.Add("unrelated").Command("true")
	})

	plan, err := NewPlan(reg, []string{"assemble"})
	require.NoError(t, err)
	assert.Equal(t, []string{"resolve", "assemble"}, plan.Order, "mustRunAfter does not schedule its target")

	plan, err = NewPlan(reg, []string{"assemble", "clean"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cleanIndex", "clean", "resolve", "assemble"}, plan.Order)
	assert.False(t, plan.Has("unrelated"))
}

func TestNewPlan_DeterministicTieBreak(t *testing.T) {
	reg := graph(t, func(b *dsl.Builder) {
		b.Add("root").DependsOn("c", "a", "b")
		b.Add("a")
		b.Add("b")
		b.Add("c")
	})

	for i := 0; i < 5; i++ {
		plan, err := NewPlan(reg, []string{"root"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "root"}, plan.Order)
	}
}

func TestNewPlan_UnknownRequested(t *testing.T) {
	reg := graph(t, func(b *dsl.Builder) { b.Add("a") })

	_, err := NewPlan(reg, []string{"ghost"})
	var unknown *domain.UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
	assert.Empty(t, unknown.Referrer)
}

func TestNewPlan_CycleWitness(t *testing.T) {
	reg := registry.New()
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Register(domain.NewTask(n)))
	}
	require.NoError(t, reg.DependsOn("a", "b"))
	require.NoError(t, reg.DependsOn("b", "c"))
	require.NoError(t, reg.DependsOn("c", "a"))

	_, err := NewPlan(reg, []string{"a"})
	var cyc *domain.CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cyc.Cycle)
	assert.ErrorIs(t, ValidateGraph(reg), domain.ErrCyclicDependency)
}

func TestNewPlan_SoftEdgeCycle(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(domain.NewTask("a")))
	require.NoError(t, reg.Register(domain.NewTask("b")))
	require.NoError(t, reg.DependsOn("a", "b"))
	require.NoError(t, reg.MustRunAfter("b", "a"))

	_, err := NewPlan(reg, []string{"a"})
	assert.ErrorIs(t, err, domain.ErrCyclicDependency)

	// The soft edge only counts when both ends are scheduled.
	_, err = NewPlan(reg, []string{"b"})
	assert.NoError(t, err)
}

func TestNewPlan_Finalizers(t *testing.T) {
	reg := graph(t, func(b *dsl.Builder) {
		b.Add("integrationTest").DependsOn("startServer").FinalizedBy("stopServer")
		b.Add("startServer")
		b.Add("stopServer")
	})

	plan, err := NewPlan(reg, []string{"integrationTest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"startServer", "integrationTest", "stopServer"}, plan.Order)
	assert.Equal(t, []string{"integrationTest"}, plan.owners["stopServer"])

	plan, err = NewPlan(reg, []string{"integrationTest", "stopServer"})
	require.NoError(t, err)
	assert.NotContains(t, plan.owners, "stopServer", "requested finalizers run unconditionally")
}

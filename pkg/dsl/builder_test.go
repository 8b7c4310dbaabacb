package dsl

import (
	"testing"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleGraph(t *testing.T) {
	b := New()

	b.Add("resolve").
		Group(domain.GroupBuild).
		Command("pub", "get").
		Inputs("pubspec.yaml").
		Outputs(".packages")

	b.Add("test").
		Command("pub", "run", "test").
		DependsOn("resolve")

	b.Add("check").
		DependsOn("test")

	reg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"check", "resolve", "test"}, reg.Names())

	resolve, ok := reg.Get("resolve")
	require.True(t, ok)
	assert.Equal(t, []string{"pub", "get"}, resolve.Command)
	assert.Equal(t, []string{"pubspec.yaml"}, resolve.Inputs)
	assert.Equal(t, domain.GroupBuild, resolve.Group)
	assert.True(t, resolve.Enabled)

	check, _ := reg.Get("check")
	assert.True(t, check.IsAggregate())
	assert.Equal(t, []string{"test"}, check.DependsOn)
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	b.Add("a").Describe("first")
	b.Add("a").Group("g")

	reg, err := b.Build()
	require.NoError(t, err)
	a, _ := reg.Get("a")
	assert.Equal(t, "first", a.Description)
	assert.Equal(t, "g", a.Group)
}

func TestBuilder_DanglingEdge(t *testing.T) {
	b := New()
	b.Add("a").DependsOn("missing")

	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrUnknownTask)
}

func TestTaskBuilder_Errors(t *testing.T) {
	_, err := NewTask("x").Command("").Build()
	assert.Error(t, err)

	_, err = NewTask("x").Delete().Build()
	assert.Error(t, err)

	_, err = NewTask("x").Copy(domain.CopySpec{From: "src"}).Build()
	assert.Error(t, err)

	_, err = NewTask("x").Command("pub", "get").Delete(".packages").Build()
	assert.Error(t, err)

	_, err = NewTask("x").DependsOn("x").Build()
	assert.ErrorIs(t, err, domain.ErrCyclicDependency)
}

func TestTaskBuilder_ActionsAndFlags(t *testing.T) {
	task, err := NewTask("stage").
		Copy(domain.CopySpec{From: "lib", Into: "out", Include: []string{"**/*.dart"}}).
		MustRunAfter("clean", "clean").
		FinalizedBy("report").
		Stdin("y\n").
		Dir("out").
		Disabled().
		Build()
	require.NoError(t, err)

	require.NotNil(t, task.Action)
	assert.Equal(t, domain.ActionCopy, task.Action.Kind)
	assert.Equal(t, "out", task.Action.Copy.Into)
	assert.Equal(t, []string{"clean"}, task.MustRunAfter)
	assert.Equal(t, []string{"report"}, task.FinalizedBy)
	assert.Equal(t, "y\n", task.Stdin)
	assert.Equal(t, "out", task.WorkingDir)
	assert.False(t, task.Enabled)
}

func TestTasks_RegisterIsAtomic(t *testing.T) {
	tasks := NewTasks(registry.New())

	err := tasks.Register("broken", func(b *TaskBuilder) {
		b.Command("pub", "get").Copy(domain.CopySpec{From: "a", Into: "b"})
	})
	require.Error(t, err)
	assert.Empty(t, tasks.Names())

	require.NoError(t, tasks.Register("ok", func(b *TaskBuilder) { b.Command("pub", "get") }))
	err = tasks.Register("ok", nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateTask)
}

func TestTasks_Configure(t *testing.T) {
	tasks := NewTasks(registry.New())
	require.NoError(t, tasks.Register("runTests", func(b *TaskBuilder) {
		b.Command("pub", "run", "test")
	}))

	require.NoError(t, tasks.Configure("runTests", func(b *TaskBuilder) { b.Disabled() }))
	got, _ := tasks.Get("runTests")
	assert.False(t, got.Enabled)
	assert.Equal(t, []string{"pub", "run", "test"}, got.Command)

	err := tasks.Configure("runTests", func(b *TaskBuilder) { b.Delete() })
	require.Error(t, err)
	got, _ = tasks.Get("runTests")
	assert.Nil(t, got.Action, "invalid configuration must leave the task unchanged")

	err = tasks.Configure("nope", func(*TaskBuilder) {})
	assert.ErrorIs(t, err, domain.ErrUnknownTask)
}

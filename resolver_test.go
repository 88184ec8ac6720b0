package modloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, mods ...testMod) (*Plan, map[string]*Mod) {
	t.Helper()
	registry, raws, _ := fixture(mods...)
	built := buildMods(t, registry, raws...)
	plan := NewResolver(&logger{t}).Resolve("init", built)
	return plan, modsByID(built)
}

func excludedIDs(plan *Plan) []string {
	var ids []string
	for _, ex := range plan.Excluded {
		ids = append(ids, ex.Mod.ID())
	}
	return ids
}

func exclusionFor(plan *Plan, id string) (Exclusion, bool) {
	for _, ex := range plan.Excluded {
		if ex.Mod.ID() == id {
			return ex, true
		}
	}
	return Exclusion{}, false
}

func TestResolver_DependenciesComeFirst(t *testing.T) {
	plan, _ := resolve(t,
		modWith("C", "1.0", "init").requires("B"),
		modWith("B", "1.0", "init").requires("A"),
		modWith("A", "1.0", "init"),
	)

	assert.Empty(t, plan.Excluded)
	assert.Equal(t, []string{"A", "B", "C"}, plan.IDs())
	assert.Equal(t, "init", plan.Phase)
}

func TestResolver_DiscoveryOrderBreaksTies(t *testing.T) {
	plan, _ := resolve(t,
		modWith("Zed", "1.0", "init"),
		modWith("Alpha", "1.0", "init"),
		modWith("Mid", "1.0", "init"),
	)
	assert.Equal(t, []string{"Zed", "Alpha", "Mid"}, plan.IDs())
}

func TestResolver_CycleExclusionIsExact(t *testing.T) {
	plan, mods := resolve(t,
		modWith("A", "1.0", "init").requires("B"),
		modWith("B", "1.0", "init").requires("A"),
		modWith("C", "1.0", "init"),
		modWith("D", "1.0", "init").requires("C"),
	)

	assert.Equal(t, []string{"C", "D"}, plan.IDs())
	assert.ElementsMatch(t, []string{"A", "B"}, excludedIDs(plan))

	for _, id := range []string{"A", "B"} {
		ex, ok := exclusionFor(plan, id)
		require.True(t, ok)
		assert.Equal(t, KindDependencyCycle, ex.Diagnostic.Kind)
		assert.Equal(t, SeverityError, ex.Diagnostic.Severity)
		assert.Equal(t, []string{"A", "B"}, ex.Diagnostic.Related)
		assert.Contains(t, ex.Diagnostic.Message, "A -> B -> A")
	}
	// The resolver only reports; exclusion is applied by the coordinator.
	assert.False(t, mods["A"].Excluded())
}

func TestResolver_DependentOfCycleIsExcludedAsUnsatisfied(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init").requires("B"),
		modWith("B", "1.0", "init").requires("A"),
		modWith("E", "1.0", "init").requires("A"),
		modWith("F", "1.0", "init"),
	)

	assert.Equal(t, []string{"F"}, plan.IDs())
	ex, ok := exclusionFor(plan, "E")
	require.True(t, ok)
	assert.Equal(t, KindUnsatisfiedDependency, ex.Diagnostic.Kind)
	assert.Equal(t, []string{"A"}, ex.Diagnostic.Related)
	assert.Contains(t, ex.Diagnostic.Message, "excluded")
}

func TestResolver_SelfDependencyIsACycle(t *testing.T) {
	plan, _ := resolve(t,
		modWith("Loop", "1.0", "init").requires("Loop"),
		modWith("Fine", "1.0", "init"),
	)

	assert.Equal(t, []string{"Fine"}, plan.IDs())
	ex, ok := exclusionFor(plan, "Loop")
	require.True(t, ok)
	assert.Equal(t, KindDependencyCycle, ex.Diagnostic.Kind)
}

func TestResolver_TooOldDependencyExcludesDependentOnly(t *testing.T) {
	plan, _ := resolve(t,
		modWith("D", "1.0", "init").requiresVersion("E", "2.0"),
		modWith("E", "1.0", "init"),
	)

	assert.Equal(t, []string{"E"}, plan.IDs())
	ex, ok := exclusionFor(plan, "D")
	require.True(t, ok)
	assert.Equal(t, KindUnsatisfiedDependency, ex.Diagnostic.Kind)
	assert.Equal(t, []string{"E"}, ex.Diagnostic.Related)
	assert.Contains(t, ex.Diagnostic.Message, "E >= 2.0.0.0 but found 1.0.0.0")
}

func TestResolver_NewEnoughDependencyIsAccepted(t *testing.T) {
	plan, _ := resolve(t,
		modWith("D", "1.0", "init").requiresVersion("E", "2.0"),
		modWith("E", "2.0.1", "init"),
	)
	assert.Empty(t, plan.Excluded)
	assert.Equal(t, []string{"E", "D"}, plan.IDs())
}

func TestResolver_MissingDependencyCascades(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init").requires("Ghost"),
		modWith("B", "1.0", "init").requires("A"),
		modWith("C", "1.0", "init"),
	)

	assert.Equal(t, []string{"C"}, plan.IDs())
	assert.Equal(t, []string{"A", "B"}, excludedIDs(plan))

	exA, _ := exclusionFor(plan, "A")
	assert.Contains(t, exA.Diagnostic.Message, "not installed")
	exB, _ := exclusionFor(plan, "B")
	assert.Contains(t, exB.Diagnostic.Message, "excluded")
}

func TestResolver_CycleMemberWithMissingDependencyIsStillACycle(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init").requires("B", "Missing"),
		modWith("B", "1.0", "init").requires("A"),
		modWith("C", "1.0", "init").requires("B"),
	)

	assert.Empty(t, plan.IDs())
	for _, id := range []string{"A", "B"} {
		ex, ok := exclusionFor(plan, id)
		require.True(t, ok, id)
		assert.Equal(t, KindDependencyCycle, ex.Diagnostic.Kind, id)
		assert.Equal(t, []string{"A", "B"}, ex.Diagnostic.Related)
	}
	exC, ok := exclusionFor(plan, "C")
	require.True(t, ok)
	assert.Equal(t, KindUnsatisfiedDependency, exC.Diagnostic.Kind)
}

func TestResolver_UnsatisfiedMessageSpacing(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init").requires("Missing"),
		modWith("B", "1.0", "init").requiresVersion("Gone", "2.0"),
	)

	exA, _ := exclusionFor(plan, "A")
	assert.Equal(t, ErrUnsatisfiedDependency.Error()+": requires Missing but it is not installed", exA.Diagnostic.Message)
	exB, _ := exclusionFor(plan, "B")
	assert.Equal(t, ErrUnsatisfiedDependency.Error()+": requires Gone >= 2.0.0.0 but it is not installed", exB.Diagnostic.Message)
}

func TestResolver_DisabledDependency(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init").disabled(),
		modWith("B", "1.0", "init").requires("A"),
	)

	assert.Equal(t, []string{"A"}, plan.IDs())
	ex, ok := exclusionFor(plan, "B")
	require.True(t, ok)
	assert.Contains(t, ex.Diagnostic.Message, "disabled")
}

func TestResolver_FailedConstructionDependency(t *testing.T) {
	registry, raws, _ := fixture(modWith("B", "1.0", "init").requires("A"))
	built := buildMods(t, registry, raws...)
	broken := newMod(1, RawDescriptor{ID: "A"})
	broken.status = MissingAssemblyFile
	mods := append([]*Mod{broken}, built...)

	plan := NewResolver(nil).Resolve("init", mods)
	assert.Empty(t, plan.IDs())
	ex, ok := exclusionFor(plan, "B")
	require.True(t, ok)
	assert.Contains(t, ex.Diagnostic.Message, "failed to load (MissingAssemblyFile)")
}

func TestResolver_SoftHintsOrderMods(t *testing.T) {
	plan, _ := resolve(t,
		modWith("First", "1.0", "init"),
		modWith("Second", "1.0", "init").before("First"),
		modWith("Third", "1.0", "init"),
		modWith("Fourth", "1.0", "init").after("Third").before("Second"),
	)

	assert.Empty(t, plan.Advisories)
	assert.Equal(t, []string{"Third", "Fourth", "Second", "First"}, plan.IDs())
}

func TestResolver_SoftHintsAreDroppedNotFatal(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init"),
		modWith("B", "1.0", "init").requires("A").before("A").after("Missing").after("B"),
	)

	assert.Empty(t, plan.Excluded)
	assert.Equal(t, []string{"A", "B"}, plan.IDs())
	require.Len(t, plan.Advisories, 3)
	for _, adv := range plan.Advisories {
		assert.Equal(t, KindDroppedHint, adv.Kind)
		assert.Equal(t, SeverityAdvisory, adv.Severity)
		assert.Equal(t, "B", adv.ModID)
	}
	assert.Equal(t, []string{"B"}, plan.Advisories[0].Related)
	assert.Contains(t, plan.Advisories[0].Message, "itself")
	assert.Equal(t, []string{"Missing"}, plan.Advisories[1].Related)
	assert.Contains(t, plan.Advisories[1].Message, "not part of this session")
	assert.Equal(t, []string{"A"}, plan.Advisories[2].Related)
	assert.Contains(t, plan.Advisories[2].Message, "conflicts")
}

func TestResolver_SoftCycleKeepsFirstHint(t *testing.T) {
	plan, _ := resolve(t,
		modWith("A", "1.0", "init").after("B"),
		modWith("B", "1.0", "init").after("A"),
	)

	assert.Empty(t, plan.Excluded)
	assert.Equal(t, []string{"B", "A"}, plan.IDs())
	require.Len(t, plan.Advisories, 1)
	assert.Equal(t, "B", plan.Advisories[0].ModID)
}

func TestResolver_ExcludedAndUnbuiltModsAreNotOrdered(t *testing.T) {
	registry, raws, _ := fixture(modWith("A", "1.0", "init"), modWith("B", "1.0", "init"))
	built := buildMods(t, registry, raws...)
	built[0].exclude(Diagnostic{Kind: KindPlatformExcluded, ModID: "A"})
	unbuilt := newMod(2, RawDescriptor{ID: "C"})

	plan := NewResolver(nil).Resolve("init", append(built, unbuilt))
	assert.Equal(t, []string{"B"}, plan.IDs())
	assert.Empty(t, plan.Excluded)
}

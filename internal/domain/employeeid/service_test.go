package employeeid

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffnum/internal/core/apperror"
	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/core/pattern"
	infranumerator "staffnum/internal/infrastructure/numerator"
)

func TestGenerate_Padding(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(t, settingsWith("EMP-{####}"), newFakeDirectory())
	res, err := svc.GenerateFor(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0001", res.EmployeeNumber)
	assert.Equal(t, int64(1), res.Counter)
	assert.Equal(t, 1, res.Attempts)

	s := settingsWith("EMP-{####}")
	s.CounterStart = 12345
	svc, _ = newTestService(t, s, newFakeDirectory())
	res, err = svc.GenerateFor(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-12345", res.EmployeeNumber)
}

func TestGenerate_CounterPaddingOverride(t *testing.T) {
	s := settingsWith("EMP-{##}")
	s.CounterPadding = 6
	svc, _ := newTestService(t, s, newFakeDirectory())

	res, err := svc.GenerateFor(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-000001", res.EmployeeNumber)
}

func TestGenerate_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	svc, _ := newTestService(t, settingsWith("EMP-{####}"), newFakeDirectory())
	const callers = 50

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.GenerateFor(context.Background(), Request{})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers = append(numbers, res.EmployeeNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, callers)
	sort.Strings(numbers)
	for i, n := range numbers {
		assert.Equal(t, fmt.Sprintf("EMP-%04d", i+1), n)
	}
}

func TestGenerate_ScopeIsolation(t *testing.T) {
	dir := newFakeDirectory().
		withEntity(pattern.EntityCompany, "Alpha", "AAA").
		withEntity(pattern.EntityCompany, "Beta", "BBB")
	svc, _ := newTestService(t, settingsWith("{COMPANY_ABBR}-{####}"), dir)
	ctx := context.Background()

	gen := func(company string) string {
		res, err := svc.GenerateFor(ctx, Request{Employee: Employee{Company: company}})
		require.NoError(t, err)
		return res.EmployeeNumber
	}

	assert.Equal(t, "AAA-0001", gen("Alpha"))
	assert.Equal(t, "BBB-0001", gen("Beta"))
	assert.Equal(t, "AAA-0002", gen("Alpha"))
}

func TestGenerate_TokensAfterCounterDoNotScope(t *testing.T) {
	dir := newFakeDirectory().
		withEntity(pattern.EntityBranch, "North", "NTH").
		withEntity(pattern.EntityBranch, "South", "STH")
	svc, _ := newTestService(t, settingsWith("E{####}-{BRANCH_ABBR}"), dir)
	ctx := context.Background()

	a, err := svc.GenerateFor(ctx, Request{Employee: Employee{Branch: "North"}})
	require.NoError(t, err)
	b, err := svc.GenerateFor(ctx, Request{Employee: Employee{Branch: "South"}})
	require.NoError(t, err)

	assert.Equal(t, "E0001-NTH", a.EmployeeNumber)
	assert.Equal(t, "E0002-STH", b.EmployeeNumber)
	assert.Equal(t, pattern.GlobalScope, b.Scope)
}

func TestGenerate_ResetBoundary(t *testing.T) {
	svc, _ := newTestService(t, settingsWith("{YY}-{####}"), newFakeDirectory())
	ctx := context.Background()

	dec31 := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)
	jan1 := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)

	res, err := svc.GenerateFor(ctx, Request{Now: dec31})
	require.NoError(t, err)
	assert.Equal(t, "24-0001", res.EmployeeNumber)

	res, err = svc.GenerateFor(ctx, Request{Now: dec31})
	require.NoError(t, err)
	assert.Equal(t, "24-0002", res.EmployeeNumber)

	res, err = svc.GenerateFor(ctx, Request{Now: jan1})
	require.NoError(t, err)
	assert.Equal(t, "25-0001", res.EmployeeNumber)
	assert.Equal(t, "2025", res.Period)
}

func TestGenerate_ResetOverride(t *testing.T) {
	s := settingsWith("{YYYY}-{####}")
	s.ResetCounter = pattern.ResetNever
	svc, _ := newTestService(t, s, newFakeDirectory())
	ctx := context.Background()

	_, err := svc.GenerateFor(ctx, Request{Now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	res, err := svc.GenerateFor(ctx, Request{Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, "2025-0002", res.EmployeeNumber)
	assert.Empty(t, res.Period)
}

func TestGenerate_RetriesPastTakenNumbers(t *testing.T) {
	dir := newFakeDirectory().take("EMP-0001", "EMP-0002", "EMP-0003")
	svc, _ := newTestService(t, settingsWith("EMP-{####}"), dir)

	res, err := svc.GenerateFor(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0004", res.EmployeeNumber)
	assert.Equal(t, 4, res.Attempts)
}

func TestGenerate_TakenNumbersCompareIgnoringCase(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(t, settingsWith("EMP-{####}"), newFakeDirectory().take("emp-0001"))
	res, err := svc.GenerateFor(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0002", res.EmployeeNumber)
	assert.Equal(t, 2, res.Attempts)

	s := settingsWith("Emp-{####}")
	s.CaseFormat = pattern.CasePreserve
	svc, _ = newTestService(t, s, newFakeDirectory().take("EMP-0001"))
	res, err = svc.GenerateFor(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "Emp-0001", res.EmployeeNumber)
}

func TestGenerate_ExhaustsAfterMaxAttempts(t *testing.T) {
	dir := newFakeDirectory()
	dir.existsFn = func(string) bool { return true }
	svc, store := newTestService(t, settingsWith("EMP-{####}"), dir)
	ctx := context.Background()

	_, err := svc.GenerateFor(ctx, Request{})
	require.Error(t, err)
	assert.True(t, apperror.IsGenerationExhausted(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, MaxAttempts, appErr.Details["attempts"])
	assert.Equal(t, pattern.GlobalScope, appErr.Details["scope"])

	assert.Equal(t, MaxAttempts, dir.existsCalls)
	consumed, err := store.Current(ctx, corenumerator.Key{Scope: pattern.GlobalScope})
	require.NoError(t, err)
	assert.Equal(t, int64(MaxAttempts), consumed)
}

func TestGenerate_AbbreviationFallbackOrder(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory().
		withEntity(pattern.EntityCompany, "Acme Corp", "CUS").
		withEntity(pattern.EntityCompany, "Globex International", "").
		withEntity(pattern.EntityCompany, "Initech", "")

	s := settingsWith("{COMPANY_ABBR}-{####}")
	s.Abbreviations = Abbreviations{pattern.EntityCompany: {"acme corp": "CFG"}}
	svc, _ := newTestService(t, s, dir)

	tests := []struct {
		company string
		want    string
	}{
		{"Acme Corp", "CFG-0001"},
		{"Globex International", "GI-0001"},
		{"Initech", "INI-0001"},
	}
	for _, tt := range tests {
		t.Run(tt.company, func(t *testing.T) {
			res, err := svc.GenerateFor(ctx, Request{Employee: Employee{Company: tt.company}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.EmployeeNumber)
		})
	}

	svc, _ = newTestService(t, settingsWith("{COMPANY_ABBR}-{####}"), dir)
	res, err := svc.GenerateFor(ctx, Request{Employee: Employee{Company: "Acme Corp"}})
	require.NoError(t, err)
	assert.Equal(t, "CUS-0001", res.EmployeeNumber)
}

func TestGenerate_MissingAbbreviation(t *testing.T) {
	svc, _ := newTestService(t, settingsWith("{DEPARTMENT_ABBR}-{####}"), newFakeDirectory())
	ctx := context.Background()

	_, err := svc.GenerateFor(ctx, Request{})
	require.Error(t, err)
	assert.True(t, apperror.IsMissingAbbreviation(err))

	_, err = svc.GenerateFor(ctx, Request{Employee: Employee{Department: "---"}})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "DEPARTMENT_ABBR", appErr.Details["token"])
	assert.Equal(t, "---", appErr.Details["entity"])
}

func TestGenerate_EntityNameToken(t *testing.T) {
	s := settingsWith("{COMPANY}/{####}")
	s.CaseFormat = pattern.CasePreserve
	svc, _ := newTestService(t, s, newFakeDirectory())

	res, err := svc.GenerateFor(context.Background(), Request{Employee: Employee{Company: "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, "Acme/0001", res.EmployeeNumber)
	assert.Equal(t, "COMPANY=Acme", res.Scope)
}

func TestGenerate_CaseFormatAppliesToScope(t *testing.T) {
	dir := newFakeDirectory().withEntity(pattern.EntityCompany, "Alpha", "Aa")
	s := settingsWith("Emp-{COMPANY_ABBR}-{####}")
	s.CaseFormat = pattern.CaseLower
	svc, _ := newTestService(t, s, dir)

	res, err := svc.GenerateFor(context.Background(), Request{Employee: Employee{Company: "Alpha"}})
	require.NoError(t, err)
	assert.Equal(t, "emp-aa-0001", res.EmployeeNumber)
	assert.Equal(t, "COMPANY_ABBR=aa", res.Scope)
}

func TestGenerate_ManualOverride(t *testing.T) {
	ctx := context.Background()
	s := settingsWith("EMP-{####}")
	s.AllowManualOverride = true

	t.Run("accepted without touching counters", func(t *testing.T) {
		svc, store := newTestService(t, s, newFakeDirectory())
		res, err := svc.GenerateFor(ctx, Request{Override: "LEGACY-17"})
		require.NoError(t, err)
		assert.Equal(t, "LEGACY-17", res.EmployeeNumber)
		assert.True(t, res.Override)

		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		svc, _ := newTestService(t, s, newFakeDirectory().take("LEGACY-17"))
		_, err := svc.GenerateFor(ctx, Request{Override: "LEGACY-17"})
		assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	})

	t.Run("duplicate in another case rejected", func(t *testing.T) {
		svc, _ := newTestService(t, s, newFakeDirectory().take("LEGACY-17"))
		_, err := svc.GenerateFor(ctx, Request{Override: "legacy-17"})
		assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	})

	t.Run("malformed rejected", func(t *testing.T) {
		svc, _ := newTestService(t, s, newFakeDirectory())
		_, err := svc.GenerateFor(ctx, Request{Override: "LEGACY 17"})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("ignored when not allowed", func(t *testing.T) {
		svc, _ := newTestService(t, settingsWith("EMP-{####}"), newFakeDirectory())
		res, err := svc.GenerateFor(ctx, Request{Override: "LEGACY-17"})
		require.NoError(t, err)
		assert.Equal(t, "EMP-0001", res.EmployeeNumber)
		assert.False(t, res.Override)
	})
}

func TestGenerate_Disabled(t *testing.T) {
	s := settingsWith("EMP-{####}")
	s.Enabled = false
	svc, _ := newTestService(t, s, newFakeDirectory())

	_, err := svc.GenerateFor(context.Background(), Request{})
	assert.True(t, apperror.HasCode(err, apperror.CodeGenerationDisabled))

	_, err = svc.PreviewFor(context.Background(), Request{})
	assert.True(t, apperror.HasCode(err, apperror.CodeGenerationDisabled))
}

func TestGenerate_ExplicitPattern(t *testing.T) {
	svc, _ := newTestService(t, settingsWith("EMP-{####}"), newFakeDirectory())
	ctx := context.Background()
	now := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	res, err := svc.Generate(ctx, Request{Now: now}, "X-{YYYY}{MM}{DD}-{##}")
	require.NoError(t, err)
	assert.Equal(t, "X-20250309-01", res.EmployeeNumber)
	assert.Equal(t, "2025-03-09", res.Period)

	_, err = svc.Generate(ctx, Request{Now: now}, "X-{FOO}-{##}")
	assert.True(t, apperror.IsUnknownToken(err))
}

func TestPreview_DoesNotConsume(t *testing.T) {
	svc, _ := newTestService(t, settingsWith("EMP-{####}"), newFakeDirectory())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.PreviewFor(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, "EMP-0001", res.EmployeeNumber)
	}

	res, err := svc.GenerateFor(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0001", res.EmployeeNumber)

	res, err = svc.PreviewFor(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0002", res.EmployeeNumber)
}

func TestGenerate_RuleSelectsPattern(t *testing.T) {
	s := settingsWith("EMP-{####}")
	s.Rules = []Rule{{
		Name:    "interns",
		When:    `employee.employment_type == "Intern"`,
		Pattern: "INT-{EMPLOYMENT_TYPE_ABBR}-{###}",
	}}
	svc, _ := newTestService(t, s, newFakeDirectory())
	ctx := context.Background()

	res, err := svc.GenerateFor(ctx, Request{Employee: Employee{EmploymentType: "Intern"}})
	require.NoError(t, err)
	assert.Equal(t, "INT-IN-001", res.EmployeeNumber)

	res, err = svc.GenerateFor(ctx, Request{Employee: Employee{EmploymentType: "Full Time"}})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0001", res.EmployeeNumber)
}

func TestNewService_RejectsInvalidSettings(t *testing.T) {
	dir := newFakeDirectory()
	store := infranumerator.NewMemoryStore()

	_, err := NewService(ServiceConfig{Settings: settingsWith("EMP-{###}-{##}"), Store: store, Directory: dir})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPattern))

	_, err = NewService(ServiceConfig{Settings: settingsWith("{SITE}-{###}"), Store: store, Directory: dir})
	assert.True(t, apperror.IsUnknownToken(err))

	s := settingsWith("EMP-{###}")
	s.Rules = []Rule{{Name: "bad", When: `employee.company +`, Pattern: "X-{##}"}}
	_, err = NewService(ServiceConfig{Settings: s, Store: store, Directory: dir})
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{Settings: settingsWith("EMP-{###}"), Directory: dir})
	assert.Error(t, err)
}

func TestSeedFromExisting(t *testing.T) {
	dir := newFakeDirectory().
		withEntity(pattern.EntityCompany, "Alpha", "AAA").
		take("AAA-25-0007", "aaa-25-0003", "BBB-24-0010", "not-a-number")
	store := infranumerator.NewMemoryStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceConfig{
		Settings:  settingsWith("{COMPANY_ABBR}-{YY}-{####}"),
		Store:     store,
		Directory: dir,
		Clock:     func() time.Time { return now },
	})
	require.NoError(t, err)
	ctx := context.Background()

	report, err := svc.SeedFromExisting(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 3, report.Matched)
	assert.Equal(t, []SeededCounter{
		{Scope: "COMPANY_ABBR=AAA", Period: "2025", Highest: 7, Value: 7},
		{Scope: "COMPANY_ABBR=BBB", Period: "2024", Highest: 10, Value: 10},
	}, report.Counters)

	res, err := svc.GenerateFor(ctx, Request{Employee: Employee{Company: "Alpha"}})
	require.NoError(t, err)
	assert.Equal(t, "AAA-25-0008", res.EmployeeNumber)

	_, err = store.Seed(ctx, corenumerator.Key{Scope: "COMPANY_ABBR=AAA", Period: "2025"}, 50)
	require.NoError(t, err)
	report, err = svc.SeedFromExisting(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), report.Counters[0].Value)
}

func TestSeedFromExisting_AbbreviationsWithSeparators(t *testing.T) {
	dir := newFakeDirectory().
		withEntity(pattern.EntityCompany, "Research & Development", "R-D").
		withEntity(pattern.EntityCompany, "Rho", "R").
		withEntity(pattern.EntityDepartment, "Engineering", "").
		take("R-D-ENG-0007", "R-ENG-0002")

	s := settingsWith("{COMPANY_ABBR}-{DEPARTMENT_ABBR}-{####}")
	s.Abbreviations = Abbreviations{pattern.EntityDepartment: {"Data & Ops": "D-ENG"}}
	svc, _ := newTestService(t, s, dir)
	ctx := context.Background()

	report, err := svc.SeedFromExisting(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SeededCounter{
		{Scope: "COMPANY_ABBR=R-D|DEPARTMENT_ABBR=ENG", Highest: 7, Value: 7},
		{Scope: "COMPANY_ABBR=R|DEPARTMENT_ABBR=ENG", Highest: 2, Value: 2},
	}, report.Counters)

	res, err := svc.GenerateFor(ctx, Request{Employee: Employee{
		Company:    "Research & Development",
		Department: "Engineering",
	}})
	require.NoError(t, err)
	assert.Equal(t, "R-D-ENG-0008", res.EmployeeNumber)
}

func TestCounters(t *testing.T) {
	svc, _ := newTestService(t, settingsWith("{YYYY}-{####}"), newFakeDirectory())
	ctx := context.Background()

	for _, y := range []int{2025, 2024, 2025} {
		_, err := svc.GenerateFor(ctx, Request{Now: time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
	}

	records, err := svc.Counters(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024", records[0].Period)
	assert.Equal(t, int64(1), records[0].Value)
	assert.Equal(t, "2025", records[1].Period)
	assert.Equal(t, int64(2), records[1].Value)
}

func TestPublicSettings(t *testing.T) {
	s := settingsWith("EMP-{####}")
	s.AllowManualOverride = true
	svc, _ := newTestService(t, s, newFakeDirectory())

	assert.Equal(t, PublicSettings{Enabled: true, AllowManualOverride: true, Pattern: "EMP-{####}"}, svc.PublicSettings())
}

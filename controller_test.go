package sysconf

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-sysconf/pkg/activity"
	"github.com/goliatone/go-sysconf/pkg/store"
)

type storeWrite struct {
	Key   string
	Value Value
}

// recordingStore wraps a MemoryStore and records every call.
type recordingStore struct {
	*store.MemoryStore
	writes      []storeWrite
	reads       int
	rejectArray bool
	failScalar  error
}

func newRecordingStore(entries ...store.Entry) *recordingStore {
	return &recordingStore{MemoryStore: mustMemoryStore(entries...)}
}

// mustMemoryStore builds a fixture store; seeds in tests are constants.
func mustMemoryStore(entries ...store.Entry) *store.MemoryStore {
	s, err := store.NewMemoryStore(entries...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *recordingStore) GetBool(ctx context.Context, key string) (bool, error) {
	s.reads++
	return s.MemoryStore.GetBool(ctx, key)
}

func (s *recordingStore) GetU8(ctx context.Context, key string) (uint8, error) {
	s.reads++
	return s.MemoryStore.GetU8(ctx, key)
}

func (s *recordingStore) GetU32(ctx context.Context, key string) (uint32, error) {
	s.reads++
	return s.MemoryStore.GetU32(ctx, key)
}

func (s *recordingStore) GetArray(ctx context.Context, key string, length int) ([]byte, error) {
	s.reads++
	return s.MemoryStore.GetArray(ctx, key, length)
}

func (s *recordingStore) SetBool(ctx context.Context, key string, v bool) error {
	s.writes = append(s.writes, storeWrite{Key: key, Value: Bool(v)})
	if s.failScalar != nil {
		return s.failScalar
	}
	return s.MemoryStore.SetBool(ctx, key, v)
}

func (s *recordingStore) SetU8(ctx context.Context, key string, v uint8) error {
	s.writes = append(s.writes, storeWrite{Key: key, Value: U8(v)})
	if s.failScalar != nil {
		return s.failScalar
	}
	return s.MemoryStore.SetU8(ctx, key, v)
}

func (s *recordingStore) SetU32(ctx context.Context, key string, v uint32) error {
	s.writes = append(s.writes, storeWrite{Key: key, Value: U32(v)})
	if s.failScalar != nil {
		return s.failScalar
	}
	return s.MemoryStore.SetU32(ctx, key, v)
}

func (s *recordingStore) SetArray(ctx context.Context, key string, data []byte) error {
	s.writes = append(s.writes, storeWrite{Key: key, Value: Bytes(data)})
	if s.rejectArray {
		return store.ArrayRejected(key, len(data), len(data)+1)
	}
	return s.MemoryStore.SetArray(ctx, key, data)
}

func (s *recordingStore) writesTo(key string) []storeWrite {
	var out []storeWrite
	for _, w := range s.writes {
		if w.Key == key {
			out = append(out, w)
		}
	}
	return out
}

type diagnosticRecorder struct {
	diagnostics []Diagnostic
}

func (r *diagnosticRecorder) HandleDiagnostic(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
}

func seededStore() *recordingStore {
	return newRecordingStore(
		store.Entry{Key: KeyScreenSaver, Width: store.WidthBool, Number: 1},
		store.Entry{Key: KeyPAL60, Width: store.WidthBool, Number: 0},
		store.Entry{Key: KeyAspectRatio, Width: store.WidthU8, Number: 1},
		store.Entry{Key: KeyLanguage, Width: store.WidthU8, Number: uint32(LanguageEnglish)},
		store.Entry{Key: KeyCountryCode, Width: store.WidthArray, Data: []byte{49}},
		store.Entry{Key: KeySensorBarPosition, Width: store.WidthU8, Number: 1},
		store.Entry{Key: KeySensorBarSensitivity, Width: store.WidthU32, Number: 3},
		store.Entry{Key: KeySpeakerVolume, Width: store.WidthU8, Number: 88},
		store.Entry{Key: KeyWiimoteMotor, Width: store.WidthBool, Number: 1},
	)
}

func newTestController(t *testing.T, s ConfigStore, locked bool, opts ...ControllerOption) *Controller {
	t.Helper()
	ctrl, err := New(context.Background(), s, StaticGate(locked), opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl
}

func TestNewLoadsEveryOptionFromStore(t *testing.T) {
	ctrl := newTestController(t, seededStore(), false)

	want := map[OptionID]Value{
		OptionScreenSaver:          Bool(true),
		OptionPAL60:                Bool(false),
		OptionAspectRatio:          U8(1),
		OptionLanguage:             U8(uint8(LanguageEnglish)),
		OptionSensorBarPosition:    U8(1),
		OptionSensorBarSensitivity: U32(3),
		OptionSpeakerVolume:        U8(88),
		OptionWiimoteMotor:         Bool(true),
	}
	for id, expected := range want {
		got, ok := ctrl.Value(id)
		if !ok {
			t.Fatalf("expected value for %s", id)
		}
		if !got.Equal(expected) {
			t.Fatalf("option %s: expected %s, got %s", id, expected, got)
		}
	}
	if ctrl.IsLocked() {
		t.Fatalf("expected unlocked controller")
	}
}

func TestLoadedValuesWriteBackUnchanged(t *testing.T) {
	s := seededStore()
	ctrl := newTestController(t, s, false)
	ctx := context.Background()

	for _, opt := range ctrl.Options() {
		value, _ := ctrl.Value(opt.ID)
		if _, err := ctrl.OnOptionChanged(ctx, opt.ID, value); err != nil {
			t.Fatalf("write back %s: %v", opt.ID, err)
		}
	}

	reloaded := newTestController(t, s, false)
	for _, opt := range ctrl.Options() {
		before, _ := ctrl.Value(opt.ID)
		after, _ := reloaded.Value(opt.ID)
		if !before.Equal(after) {
			t.Fatalf("option %s changed across round trip: %s -> %s", opt.ID, before, after)
		}
	}
}

func TestOnOptionChangedWritesOnceForIndependentOptions(t *testing.T) {
	cases := []struct {
		id    OptionID
		key   string
		value Value
	}{
		{OptionScreenSaver, KeyScreenSaver, Bool(false)},
		{OptionPAL60, KeyPAL60, Bool(true)},
		{OptionAspectRatio, KeyAspectRatio, U8(0)},
		{OptionSensorBarPosition, KeySensorBarPosition, U8(0)},
		{OptionSensorBarSensitivity, KeySensorBarSensitivity, U32(4)},
		{OptionSpeakerVolume, KeySpeakerVolume, U8(127)},
		{OptionWiimoteMotor, KeyWiimoteMotor, Bool(false)},
	}

	for _, tc := range cases {
		s := seededStore()
		diags := &diagnosticRecorder{}
		ctrl := newTestController(t, s, false, WithDiagnosticHandler(diags))

		report, err := ctrl.OnOptionChanged(context.Background(), tc.id, tc.value)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.id, err)
		}
		if len(s.writes) != 1 {
			t.Fatalf("%s: expected exactly one write, got %d: %+v", tc.id, len(s.writes), s.writes)
		}
		if s.writes[0].Key != tc.key || !s.writes[0].Value.Equal(tc.value) {
			t.Fatalf("%s: unexpected write %+v", tc.id, s.writes[0])
		}
		if report.Derived != nil || len(report.Diagnostics) != 0 || len(diags.diagnostics) != 0 {
			t.Fatalf("%s: expected no derived work, got %+v", tc.id, report)
		}
		if got, _ := ctrl.Value(tc.id); !got.Equal(tc.value) {
			t.Fatalf("%s: expected local value %s, got %s", tc.id, tc.value, got)
		}
	}
}

func TestSetLanguageWritesCountryCode(t *testing.T) {
	s := seededStore()
	ctrl := newTestController(t, s, false)

	report, err := ctrl.SetLanguage(context.Background(), LanguageFrench)
	if err != nil {
		t.Fatalf("set language: %v", err)
	}

	if len(s.writes) != 2 {
		t.Fatalf("expected primary and derived writes, got %+v", s.writes)
	}
	if s.writes[0].Key != KeyLanguage || !s.writes[0].Value.Equal(U8(uint8(LanguageFrench))) {
		t.Fatalf("expected language written first, got %+v", s.writes[0])
	}
	if s.writes[1].Key != KeyCountryCode || !s.writes[1].Value.Equal(Bytes([]byte{77})) {
		t.Fatalf("expected country code 77, got %+v", s.writes[1])
	}
	if report.Derived == nil || report.Derived.Err != nil || !report.Derived.Value.Equal(Bytes([]byte{77})) {
		t.Fatalf("unexpected derived report: %+v", report.Derived)
	}
	if len(report.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", report.Diagnostics)
	}
}

func TestSetLanguageChineseVariantsShareCountryCode(t *testing.T) {
	for _, lang := range []Language{LanguageSimplifiedChinese, LanguageTraditionalChinese} {
		s := seededStore()
		ctrl := newTestController(t, s, false)

		if _, err := ctrl.SetLanguage(context.Background(), lang); err != nil {
			t.Fatalf("%s: set language: %v", lang, err)
		}
		got, err := s.GetArray(context.Background(), KeyCountryCode, 1)
		if err != nil {
			t.Fatalf("%s: read country code: %v", lang, err)
		}
		if got[0] != 157 {
			t.Fatalf("%s: expected country code 157, got %d", lang, got[0])
		}
	}
}

func TestSetLanguageUnknownFallsBackWithOneDiagnostic(t *testing.T) {
	s := seededStore()
	diags := &diagnosticRecorder{}
	ctrl := newTestController(t, s, false, WithDiagnosticHandler(diags))

	report, err := ctrl.SetLanguage(context.Background(), LanguageUnknown)
	if err != nil {
		t.Fatalf("set language: %v", err)
	}

	writes := s.writesTo(KeyCountryCode)
	if len(writes) != 1 || !writes[0].Value.Equal(Bytes([]byte{1})) {
		t.Fatalf("expected fallback country code 1, got %+v", writes)
	}
	if len(report.Diagnostics) != 1 || len(diags.diagnostics) != 1 {
		t.Fatalf("expected exactly one diagnostic, got report=%d handler=%d", len(report.Diagnostics), len(diags.diagnostics))
	}
	d := diags.diagnostics[0]
	if d.Kind != DiagnosticUnrecognizedValue {
		t.Fatalf("expected unrecognized value diagnostic, got %s", d.Kind)
	}
	if d.Option != OptionLanguage || d.Key != KeyCountryCode {
		t.Fatalf("unexpected diagnostic target: %s %s", d.Option, d.Key)
	}
	if !errors.Is(d.Err, ErrUnrecognizedLanguage) {
		t.Fatalf("expected ErrUnrecognizedLanguage, got %v", d.Err)
	}
	if d.Detail["sentinel"] != true {
		t.Fatalf("expected sentinel detail, got %+v", d.Detail)
	}
}

func TestSetLanguageOutOfRangeFallsBack(t *testing.T) {
	s := seededStore()
	ctrl := newTestController(t, s, false)

	report, err := ctrl.OnOptionChanged(context.Background(), OptionLanguage, U8(42))
	if err != nil {
		t.Fatalf("change language: %v", err)
	}
	if !report.Derived.Value.Equal(Bytes([]byte{CountryCodeFallback})) {
		t.Fatalf("expected fallback, got %s", report.Derived.Value)
	}
	if len(report.Diagnostics) != 1 || report.Diagnostics[0].Detail["sentinel"] != false {
		t.Fatalf("expected one non-sentinel diagnostic, got %+v", report.Diagnostics)
	}
}

func TestDerivedArrayRejectedKeepsPrimaryWrite(t *testing.T) {
	s := seededStore()
	s.rejectArray = true
	diags := &diagnosticRecorder{}
	ctrl := newTestController(t, s, false, WithDiagnosticHandler(diags))
	ctx := context.Background()

	report, err := ctrl.SetLanguage(ctx, LanguageFrench)
	if err != nil {
		t.Fatalf("expected no error on rejected derived write, got %v", err)
	}

	stored, err := s.GetU8(ctx, KeyLanguage)
	if err != nil {
		t.Fatalf("read language: %v", err)
	}
	if Language(stored) != LanguageFrench {
		t.Fatalf("expected primary write committed, got %s", Language(stored))
	}
	if got, _ := ctrl.Value(OptionLanguage); !got.Equal(LanguageFrench.Value()) {
		t.Fatalf("expected local value kept, got %s", got)
	}
	code, _ := s.GetArray(ctx, KeyCountryCode, 1)
	if code[0] != 49 {
		t.Fatalf("expected country code untouched, got %d", code[0])
	}

	if len(diags.diagnostics) != 1 || len(report.Diagnostics) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %+v", diags.diagnostics)
	}
	if diags.diagnostics[0].Kind != DiagnosticArrayRejected {
		t.Fatalf("expected array rejected diagnostic, got %s", diags.diagnostics[0].Kind)
	}
	if report.Derived == nil || !errors.Is(report.Derived.Err, ErrArrayRejected) {
		t.Fatalf("expected derived error to wrap ErrArrayRejected, got %+v", report.Derived)
	}
	var writeErr *WriteError
	if !errors.As(report.Derived.Err, &writeErr) || writeErr.Reason != ReasonArrayRejected || writeErr.Key != KeyCountryCode {
		t.Fatalf("expected *WriteError with array reason, got %v", report.Derived.Err)
	}
}

func TestDerivedArrayRejectedByDeclaredLength(t *testing.T) {
	s := seededStore()
	if err := s.DeclareArray(KeyCountryCode, 2); err != nil {
		t.Fatalf("declare array: %v", err)
	}
	ctrl := newTestController(t, s, false)

	report, err := ctrl.SetLanguage(context.Background(), LanguageGerman)
	if err != nil {
		t.Fatalf("set language: %v", err)
	}
	if len(report.Diagnostics) != 1 || report.Diagnostics[0].Kind != DiagnosticArrayRejected {
		t.Fatalf("expected one array rejected diagnostic, got %+v", report.Diagnostics)
	}
	if report.Diagnostics[0].Message != "Failed to update country code in SYSCONF" {
		t.Fatalf("unexpected message %q", report.Diagnostics[0].Message)
	}
}

func TestUnknownLanguageWithRejectedArrayReportsBoth(t *testing.T) {
	s := seededStore()
	s.rejectArray = true
	ctrl := newTestController(t, s, false)

	report, err := ctrl.SetLanguage(context.Background(), LanguageUnknown)
	if err != nil {
		t.Fatalf("set language: %v", err)
	}
	if len(report.Diagnostics) != 2 {
		t.Fatalf("expected two diagnostics, got %+v", report.Diagnostics)
	}
	if report.Diagnostics[0].Kind != DiagnosticUnrecognizedValue || report.Diagnostics[1].Kind != DiagnosticArrayRejected {
		t.Fatalf("unexpected diagnostic order: %s, %s", report.Diagnostics[0].Kind, report.Diagnostics[1].Kind)
	}
}

func TestDerivedWideArrayReplacesFirstByte(t *testing.T) {
	opts := []Option{{
		ID:      OptionLanguage,
		Key:     KeyLanguage,
		Kind:    KindU8,
		Derived: &Derived{Key: KeyCountryCode, Length: 4},
	}}
	s := newRecordingStore(store.Entry{Key: KeyCountryCode, Width: store.WidthArray, Data: []byte{49, 2, 3, 4}})
	ctrl := newTestController(t, s, false, WithOptions(opts...))

	if _, err := ctrl.SetLanguage(context.Background(), LanguageKorean); err != nil {
		t.Fatalf("set language: %v", err)
	}
	got, _ := s.GetArray(context.Background(), KeyCountryCode, 4)
	if got[0] != 136 || got[1] != 2 || got[2] != 3 || got[3] != 4 {
		t.Fatalf("expected only byte 0 replaced, got %v", got)
	}
}

func TestLockedControllerNeverWrites(t *testing.T) {
	s := seededStore()
	diags := &diagnosticRecorder{}
	ctrl := newTestController(t, s, true, WithDiagnosticHandler(diags))
	ctx := context.Background()

	if !ctrl.IsLocked() {
		t.Fatalf("expected locked controller")
	}

	changes := []struct {
		id    OptionID
		value Value
	}{
		{OptionScreenSaver, Bool(false)},
		{OptionLanguage, LanguageFrench.Value()},
		{OptionLanguage, LanguageUnknown.Value()},
		{OptionSensorBarSensitivity, U32(1)},
		{OptionSpeakerVolume, U8(10)},
		{"missing", U8(1)},
	}
	for _, change := range changes {
		_, err := ctrl.OnOptionChanged(ctx, change.id, change.value)
		if !errors.Is(err, ErrLocked) {
			t.Fatalf("%s: expected ErrLocked, got %v", change.id, err)
		}
	}
	if len(s.writes) != 0 {
		t.Fatalf("expected zero writes while locked, got %+v", s.writes)
	}
	if len(diags.diagnostics) != 0 {
		t.Fatalf("expected no diagnostics while locked, got %+v", diags.diagnostics)
	}
	if got, _ := ctrl.Value(OptionLanguage); !got.Equal(LanguageEnglish.Value()) {
		t.Fatalf("expected local value unchanged, got %s", got)
	}
}

func TestLockedControllerStillLoadsValues(t *testing.T) {
	ctrl := newTestController(t, seededStore(), true)
	if got, _ := ctrl.Value(OptionSpeakerVolume); !got.Equal(U8(88)) {
		t.Fatalf("expected loaded value while locked, got %s", got)
	}
}

func TestStrictLockPanics(t *testing.T) {
	ctrl := newTestController(t, seededStore(), true, WithStrictLock(true))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_, _ = ctrl.SetBool(context.Background(), OptionWiimoteMotor, false)
}

func TestGateIsEvaluatedOnceAfterLoad(t *testing.T) {
	s := seededStore()
	calls := 0
	readsAtGate := -1
	gate := GateFunc(func() bool {
		calls++
		readsAtGate = s.reads
		return false
	})

	ctrl, err := New(context.Background(), s, gate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	_, _ = ctrl.SetBool(ctx, OptionPAL60, true)
	_, _ = ctrl.SetLanguage(ctx, LanguageDutch)
	_ = ctrl.IsLocked()
	if err := ctrl.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected gate to be queried once, got %d", calls)
	}
	if readsAtGate != len(DefaultOptions()) {
		t.Fatalf("expected gate queried after all %d reads, saw %d", len(DefaultOptions()), readsAtGate)
	}
}

func TestSessionFlagLockDecidedAtConstruction(t *testing.T) {
	var flag SessionFlag
	ctrl := newTestController(t, seededStore(), false)
	flag.Start()
	locked, err := New(context.Background(), seededStore(), &flag)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	flag.Stop()

	if ctrl.IsLocked() {
		t.Fatalf("expected first controller to stay unlocked")
	}
	if !locked.IsLocked() {
		t.Fatalf("expected controller built during a session to stay locked")
	}
}

func TestOnOptionChangedRejectsBadInput(t *testing.T) {
	s := seededStore()
	ctrl := newTestController(t, s, false)
	ctx := context.Background()

	if _, err := ctrl.OnOptionChanged(ctx, "missing", U8(1)); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
	if _, err := ctrl.OnOptionChanged(ctx, OptionSpeakerVolume, U32(10)); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	if _, err := ctrl.OnOptionChanged(ctx, OptionPAL60, U8(1)); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch for bool option, got %v", err)
	}

	_, err := ctrl.SetU8(ctx, OptionAspectRatio, 2)
	var violation *RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if violation.Option != OptionAspectRatio || violation.Rule != "value <= 1" {
		t.Fatalf("unexpected violation: %+v", violation)
	}
	if _, err := ctrl.SetU32(ctx, OptionSensorBarSensitivity, 5); err == nil {
		t.Fatalf("expected sensitivity 5 to be rejected")
	}
	if _, err := ctrl.SetU8(ctx, OptionSpeakerVolume, 128); err == nil {
		t.Fatalf("expected volume 128 to be rejected")
	}

	if len(s.writes) != 0 {
		t.Fatalf("expected no writes for rejected input, got %+v", s.writes)
	}
}

func TestScalarWriteFailureRestoresLocalValue(t *testing.T) {
	s := seededStore()
	boom := errors.New("disk gone")
	s.failScalar = boom
	ctrl := newTestController(t, s, false)

	_, err := ctrl.SetBool(context.Background(), OptionPAL60, true)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	var writeErr *WriteError
	if !errors.As(err, &writeErr) || writeErr.Reason != ReasonStore {
		t.Fatalf("expected *WriteError with store reason, got %v", err)
	}
	if got, _ := ctrl.Value(OptionPAL60); !got.Equal(Bool(false)) {
		t.Fatalf("expected local value restored, got %s", got)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(context.Background(), nil, StaticGate(false)); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
	if _, err := New(context.Background(), seededStore(), nil); !errors.Is(err, ErrGateRequired) {
		t.Fatalf("expected ErrGateRequired, got %v", err)
	}
}

func TestNewRejectsInvalidOptionSets(t *testing.T) {
	cases := map[string][]Option{
		"duplicate key": {
			{ID: "a", Key: "IPL.X", Kind: KindBool},
			{ID: "b", Key: "IPL.X", Kind: KindU8},
		},
		"derived chain": {
			{ID: "a", Key: "IPL.A", Kind: KindU8, Derived: &Derived{Key: "IPL.B", Length: 1}},
			{ID: "b", Key: "IPL.B", Kind: KindU8},
		},
		"derived from bool": {
			{ID: "a", Key: "IPL.A", Kind: KindBool, Derived: &Derived{Key: "IPL.B", Length: 1}},
		},
		"bad rule": {
			{ID: "a", Key: "IPL.A", Kind: KindU8, Rule: "value <="},
		},
	}
	for name, opts := range cases {
		_, err := New(context.Background(), newRecordingStore(), StaticGate(false), WithOptions(opts...))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNewFailsOnStoreReadError(t *testing.T) {
	s := newRecordingStore(store.Entry{Key: KeyLanguage, Width: store.WidthBool, Number: 1})
	_, err := New(context.Background(), s, StaticGate(false))
	if !errors.Is(err, store.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch on load, got %v", err)
	}
}

func TestReloadPicksUpExternalChanges(t *testing.T) {
	s := seededStore()
	ctrl := newTestController(t, s, false)
	ctx := context.Background()

	if err := s.MemoryStore.SetU8(ctx, KeySpeakerVolume, 12); err != nil {
		t.Fatalf("external write: %v", err)
	}
	if got, _ := ctrl.Value(OptionSpeakerVolume); !got.Equal(U8(88)) {
		t.Fatalf("expected cached value before reload, got %s", got)
	}
	if err := ctrl.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got, _ := ctrl.Value(OptionSpeakerVolume); !got.Equal(U8(12)) {
		t.Fatalf("expected reloaded value, got %s", got)
	}
}

func TestReloadFailureKeepsEveryLocalValue(t *testing.T) {
	s := seededStore()
	ctrl := newTestController(t, s, false)
	ctx := context.Background()

	before := map[OptionID]Value{}
	for _, opt := range ctrl.Options() {
		before[opt.ID], _ = ctrl.Value(opt.ID)
	}

	// IPL.SSV changes first, then IPL.E60 holds the wrong width.
	s.MemoryStore = mustMemoryStore(
		store.Entry{Key: KeyScreenSaver, Width: store.WidthBool, Number: 0},
		store.Entry{Key: KeyPAL60, Width: store.WidthU8, Number: 1},
		store.Entry{Key: KeySpeakerVolume, Width: store.WidthU8, Number: 5},
	)
	err := ctrl.Reload(ctx)
	if !errors.Is(err, store.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch from reload, got %v", err)
	}

	for id, want := range before {
		if got, _ := ctrl.Value(id); !got.Equal(want) {
			t.Fatalf("%s changed on failed reload: got %s want %s", id, got, want)
		}
	}
	if got, _ := ctrl.Value(OptionScreenSaver); !got.Equal(Bool(true)) {
		t.Fatalf("expected screensaver to stay true, got %s", got)
	}
}

func TestSnapshotFeedsRules(t *testing.T) {
	opts := DefaultOptions()
	for i := range opts {
		if opts[i].ID == OptionSpeakerVolume {
			opts[i].Rule = "options.wiimote_motor || value == 0"
		}
	}
	ctrl := newTestController(t, seededStore(), false, WithOptions(opts...))
	ctx := context.Background()

	if _, err := ctrl.SetU8(ctx, OptionSpeakerVolume, 50); err != nil {
		t.Fatalf("expected volume change with motor on, got %v", err)
	}
	if _, err := ctrl.SetBool(ctx, OptionWiimoteMotor, false); err != nil {
		t.Fatalf("disable motor: %v", err)
	}
	if _, err := ctrl.SetU8(ctx, OptionSpeakerVolume, 50); err == nil {
		t.Fatalf("expected rule to see motor off in snapshot")
	}

	snapshot := ctrl.Snapshot()
	if snapshot["wiimote_motor"] != false || snapshot["speaker_volume"] != int64(50) {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestControllerEmitsActivity(t *testing.T) {
	s := seededStore()
	s.rejectArray = true
	capture := &activity.CaptureHook{}
	ctrl := newTestController(t, s, false, WithActivity(activity.Hooks{capture}, activity.Config{Enabled: true, ActorID: "pane"}))

	if _, err := ctrl.SetLanguage(context.Background(), LanguageItalian); err != nil {
		t.Fatalf("set language: %v", err)
	}

	verbs := capture.Verbs()
	want := []string{
		activity.VerbSettingsLoaded,
		activity.VerbDiagnosticPrefix + string(DiagnosticArrayRejected),
		activity.VerbOptionChanged,
	}
	if len(verbs) != len(want) {
		t.Fatalf("expected verbs %v, got %v", want, verbs)
	}
	for i := range want {
		if verbs[i] != want[i] {
			t.Fatalf("expected verbs %v, got %v", want, verbs)
		}
	}
	change := capture.Events[2]
	if change.ActorID != "pane" || change.Metadata["new_value"] != int64(LanguageItalian) {
		t.Fatalf("unexpected change event: %+v", change)
	}
	if _, ok := change.Metadata["derived_key"]; ok {
		t.Fatalf("expected rejected derived write left out of change event")
	}
	if capture.Events[1].Severity != activity.SeverityWarning {
		t.Fatalf("expected warning severity for diagnostic event")
	}
}

func TestControllerLogsLockedMutation(t *testing.T) {
	var events []LogEvent
	logger := LoggerFunc(func(e LogEvent) { events = append(events, e) })
	ctrl := newTestController(t, seededStore(), true, WithLogger(logger))

	_, _ = ctrl.SetBool(context.Background(), OptionScreenSaver, false)

	var found bool
	for _, e := range events {
		if e.Op == "locked_mutation" {
			found = true
			if !errors.Is(e.Err, ErrLocked) || e.Option != OptionScreenSaver {
				t.Fatalf("unexpected locked mutation event: %+v", e)
			}
		}
	}
	if !found {
		t.Fatalf("expected locked mutation to be logged, got %+v", events)
	}
}

func TestOptionsReturnsCopies(t *testing.T) {
	ctrl := newTestController(t, seededStore(), false)
	opts := ctrl.Options()
	for i := range opts {
		if opts[i].Derived != nil {
			opts[i].Derived.Key = "mutated"
		}
	}
	for _, opt := range ctrl.Options() {
		if opt.Derived != nil && opt.Derived.Key != KeyCountryCode {
			t.Fatalf("expected options to be cloned, got %q", opt.Derived.Key)
		}
	}
}

func TestWithResolverOverridesTable(t *testing.T) {
	s := seededStore()
	table := NewDerivationTable(map[Language]byte{LanguageEnglish: 110}, 49)
	ctrl := newTestController(t, s, false, WithResolver(NewResolver(table)))

	if _, err := ctrl.SetLanguage(context.Background(), LanguageEnglish); err != nil {
		t.Fatalf("set language: %v", err)
	}
	writes := s.writesTo(KeyCountryCode)
	if len(writes) != 1 || !writes[0].Value.Equal(Bytes([]byte{110})) {
		t.Fatalf("expected custom code 110, got %+v", writes)
	}
}

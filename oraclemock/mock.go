// Package oraclemock provides a gomock-generated-style mock of
// oracle.Adapter for deterministic CEGAR-loop tests, grounded on the
// original's go.uber.org/mock/gomock usage pattern.
package oraclemock

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	model "github.com/rseabduce/abduce/model"
	oracle "github.com/rseabduce/abduce/oracle"
	term "github.com/rseabduce/abduce/term"
)

// MockAdapter mocks oracle.Adapter.
type MockAdapter struct {
	ctrl     *gomock.Controller
	recorder *MockAdapterMockRecorder
}

// MockAdapterMockRecorder is the mock recorder for MockAdapter.
type MockAdapterMockRecorder struct {
	mock *MockAdapter
}

// NewMockAdapter creates a new mock instance.
func NewMockAdapter(ctrl *gomock.Controller) *MockAdapter {
	mock := &MockAdapter{ctrl: ctrl}
	mock.recorder = &MockAdapterMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAdapter) EXPECT() *MockAdapterMockRecorder {
	return m.recorder
}

// CheckGoals mocks base method.
func (m *MockAdapter) CheckGoals(cand term.Candidate) (oracle.GoalsResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CheckGoals", cand)
	ret0, _ := ret[0].(oracle.GoalsResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CheckGoals indicates an expected call.
func (mr *MockAdapterMockRecorder) CheckGoals(cand any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckGoals", reflect.TypeOf((*MockAdapter)(nil).CheckGoals), cand)
}

// CheckVulnerability mocks base method.
func (m *MockAdapter) CheckVulnerability(cand term.Candidate, reject []model.Bindings, complete bool) (bool, model.Bindings, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CheckVulnerability", cand, reject, complete)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(model.Bindings)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// CheckVulnerability indicates an expected call.
func (mr *MockAdapterMockRecorder) CheckVulnerability(cand, reject, complete any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckVulnerability", reflect.TypeOf((*MockAdapter)(nil).CheckVulnerability), cand, reject, complete)
}

// CheckNecessity mocks base method.
func (m *MockAdapter) CheckNecessity(solutions []term.Candidate) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CheckNecessity", solutions)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CheckNecessity indicates an expected call.
func (mr *MockAdapterMockRecorder) CheckNecessity(solutions any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckNecessity", reflect.TypeOf((*MockAdapter)(nil).CheckNecessity), solutions)
}

// EvaluateCTPolicy mocks base method.
func (m *MockAdapter) EvaluateCTPolicy(cand term.Candidate) (oracle.CTResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EvaluateCTPolicy", cand)
	ret0, _ := ret[0].(oracle.CTResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// EvaluateCTPolicy indicates an expected call.
func (mr *MockAdapterMockRecorder) EvaluateCTPolicy(cand any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EvaluateCTPolicy", reflect.TypeOf((*MockAdapter)(nil).EvaluateCTPolicy), cand)
}

// FullyAssumed mocks base method.
func (m *MockAdapter) FullyAssumed(v *term.Term) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FullyAssumed", v)
	ret0, _ := ret[0].(bool)
	return ret0
}

// FullyAssumed indicates an expected call.
func (mr *MockAdapterMockRecorder) FullyAssumed(v any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FullyAssumed", reflect.TypeOf((*MockAdapter)(nil).FullyAssumed), v)
}

// CTHistory mocks base method.
func (m *MockAdapter) CTHistory() []oracle.CTAttempt {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CTHistory")
	ret0, _ := ret[0].([]oracle.CTAttempt)
	return ret0
}

// CTHistory indicates an expected call.
func (mr *MockAdapterMockRecorder) CTHistory() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CTHistory", reflect.TypeOf((*MockAdapter)(nil).CTHistory))
}

var _ oracle.Adapter = (*MockAdapter)(nil)

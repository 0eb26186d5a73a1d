package tracker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
)

// Phase is the position of a slot in its request lifecycle.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return consts.State_Pending
	case Succeeded:
		return consts.State_Succeeded
	case Failed:
		return consts.State_Failed
	default:
		return consts.State_Idle
	}
}

// State is an immutable snapshot of one slot. A result is only present when
// Succeeded and an error only when Failed.
type State[T any] struct {
	phase     Phase
	result    T
	err       error
	seq       uint64
	updatedAt time.Time
}

func idle[T any]() State[T] {
	return State[T]{phase: Idle, updatedAt: time.Now()}
}

func pending[T any](seq uint64) State[T] {
	return State[T]{phase: Pending, seq: seq, updatedAt: time.Now()}
}

func succeeded[T any](seq uint64, result T) State[T] {
	return State[T]{phase: Succeeded, result: result, seq: seq, updatedAt: time.Now()}
}

func failed[T any](seq uint64, err error) State[T] {
	return State[T]{phase: Failed, err: err, seq: seq, updatedAt: time.Now()}
}

func (s State[T]) Phase() Phase { return s.phase }

// Result returns the payload of a Succeeded state.
func (s State[T]) Result() (T, bool) {
	if s.phase != Succeeded {
		var zero T
		return zero, false
	}
	return s.result, true
}

// Err returns the failure reason of a Failed state.
func (s State[T]) Err() error {
	if s.phase != Failed {
		return nil
	}
	return s.err
}

// Seq is the number of the request this state belongs to; 0 before the first.
func (s State[T]) Seq() uint64 { return s.seq }

func (s State[T]) UpdatedAt() time.Time { return s.updatedAt }

type stateJSON struct {
	Phase     string        `json:"phase"`
	Seq       uint64        `json:"seq"`
	Result    any           `json:"result,omitempty"`
	Error     *models.Error `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (s State[T]) MarshalJSON() ([]byte, error) {
	out := stateJSON{Phase: s.phase.String(), Seq: s.seq, UpdatedAt: s.updatedAt}
	switch s.phase {
	case Succeeded:
		out.Result = s.result
	case Failed:
		out.Error = asModelError(s.err)
	}
	return json.Marshal(out)
}

func asModelError(err error) *models.Error {
	var me *models.Error
	if errors.As(err, &me) {
		detail := me.Detail
		if detail == "" && me.Err != nil {
			detail = me.Err.Error()
		}
		return &models.Error{Kind: me.Kind, StatusCode: me.StatusCode, Detail: detail}
	}
	return &models.Error{Kind: models.KindNetwork, Detail: err.Error()}
}

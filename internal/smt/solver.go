package smt

import (
	"context"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
)

// ErrInterrupted 求解被ctx中断（超时或取消），结果未知
var ErrInterrupted = errors.New("solver interrupted")

type Solver struct {
	ctx yices2.ContextT
}

func NewSolver() *Solver {
	s := &Solver{
		ctx: yices2.ContextT{},
	}
	yices2.InitContext(yices2.ConfigT{}, &s.ctx)
	return s
}

// Close 释放yices context，之后不能再使用
func (s *Solver) Close() {
	yices2.CloseContext(&s.ctx)
}

func (s *Solver) Check(terms ...yices2.TermT) (yices2.SmtStatusT, *Model, error) {
	return s.CheckContext(context.Background(), terms...)
}

// CheckContext ctx结束时通过StopSearch打断yices的搜索
func (s *Solver) CheckContext(ctx context.Context, terms ...yices2.TermT) (yices2.SmtStatusT, *Model, error) {
	if err := ctx.Err(); err != nil {
		return yices2.StatusInterrupted, nil, errors.Wrap(ErrInterrupted, err.Error())
	}
	if errorcode := yices2.AssertFormulas(s.ctx, terms); errorcode < 0 {
		return yices2.StatusError, nil, errors.Errorf("assert formulas: %s", yices2.ErrorString())
	}

	// 返回前必须等待goroutine退出，否则StopSearch可能落在Close之后
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			yices2.StopSearch(s.ctx)
		case <-done:
		}
	}()

	status := yices2.CheckContext(s.ctx, yices2.ParamT{})
	close(done)
	<-exited
	switch status {
	case yices2.StatusSat:
		return status, NewModel(yices2.GetModel(s.ctx, 1)), nil
	case yices2.StatusUnsat:
		return status, nil, nil
	case yices2.StatusInterrupted:
		if ctx.Err() != nil {
			return status, nil, errors.Wrap(ErrInterrupted, ctx.Err().Error())
		}
		return status, nil, ErrInterrupted
	}
	return status, nil, errors.Errorf("check context: status %d, %s", status, yices2.ErrorString())
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestConstructors() {
	cause := errors.New("disk full")

	tests := []struct {
		name    string
		err     *Error
		code    ErrorCode
		message string
		cause   error
		text    string
	}{
		{
			name:    "new",
			err:     New(ErrCodeEmptySeries, "series has no bars"),
			code:    ErrCodeEmptySeries,
			message: "series has no bars",
			text:    "[121] series has no bars",
		},
		{
			name:    "newf",
			err:     Newf(ErrCodeUnknownExitStrategy, "unknown exit strategy: %s", "moon"),
			code:    ErrCodeUnknownExitStrategy,
			message: "unknown exit strategy: moon",
			text:    "[401] unknown exit strategy: moon",
		},
		{
			name:    "wrap",
			err:     Wrap(ErrCodeBacktestWriteFailed, "failed to export trades", cause),
			code:    ErrCodeBacktestWriteFailed,
			message: "failed to export trades",
			cause:   cause,
			text:    "[601] failed to export trades: disk full",
		},
		{
			name:    "wrapf",
			err:     Wrapf(ErrCodeCombinationFailed, cause, "combination %s failed", "pattern+atr"),
			code:    ErrCodeCombinationFailed,
			message: "combination pattern+atr failed",
			cause:   cause,
			text:    "[700] combination pattern+atr failed: disk full",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.code, tc.err.Code)
			suite.Equal(tc.message, tc.err.Message)
			suite.Equal(tc.cause, tc.err.Unwrap())
			suite.Equal(tc.text, tc.err.Error())
		})
	}
}

func (suite *ErrorTestSuite) TestGetCode() {
	inner := New(ErrCodeSignalLengthMismatch, "entry table has 3 rows for 4 bars")
	outer := Wrap(ErrCodeSignalProviderFailed, "entry signals failed", inner)

	suite.Equal(ErrCodeSignalProviderFailed, GetCode(outer), "outermost code wins")
	suite.Equal(ErrCodeSignalLengthMismatch, GetCode(inner))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrCodeUnknown, GetCode(nil))
}

func (suite *ErrorTestSuite) TestHasCodeThroughFmtWrap() {
	inner := Newf(ErrCodeUnknownExitStrategy, "unknown exit strategy %q", "nope")
	outer := fmt.Errorf("sweep combination 3: %w", inner)

	suite.True(HasCode(outer, ErrCodeUnknownExitStrategy))
	suite.False(HasCode(outer, ErrCodeUnknownEntryStrategy))
}

func (suite *ErrorTestSuite) TestInChain() {
	cause := New(ErrCodeBacktestCancelled, "cancelled")
	err := Wrap(ErrCodeCallbackFailed, "bar callback failed", fmt.Errorf("bar 3: %w", cause))

	suite.False(HasCode(err, ErrCodeBacktestCancelled))
	suite.True(InChain(err, ErrCodeBacktestCancelled))
	suite.True(InChain(err, ErrCodeCallbackFailed))
	suite.False(InChain(err, ErrCodeDataNotFound))
	suite.False(InChain(errors.New("plain"), ErrCodeUnknown))
	suite.False(InChain(nil, ErrCodeUnknown))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	err := Wrap(ErrCodeBacktestCancelled, "sweep cancelled", context.Canceled)
	suite.True(Is(err, context.Canceled))

	var argoErr *Error
	suite.True(As(fmt.Errorf("run: %w", err), &argoErr))
	suite.Equal(ErrCodeBacktestCancelled, argoErr.Code)
}

func (suite *ErrorTestSuite) TestCodeRanges() {
	ranges := []struct {
		codes []ErrorCode
		low   ErrorCode
		high  ErrorCode
	}{
		{[]ErrorCode{ErrCodeInvalidParameter, ErrCodeUnorderedSeries, ErrCodeEmptySeries, ErrCodeInvalidCost}, 100, 199},
		{[]ErrorCode{ErrCodeDataNotFound, ErrCodeQueryFailed, ErrCodeColumnNotFound}, 200, 299},
		{[]ErrorCode{ErrCodeIndicatorNotFound, ErrCodeIndicatorCalculation}, 300, 399},
		{[]ErrorCode{ErrCodeUnknownEntryStrategy, ErrCodeExitPolicyFailed, ErrCodeSignalLengthMismatch}, 400, 499},
		{[]ErrorCode{ErrCodeBacktestStateNil, ErrCodeBacktestCancelled}, 600, 699},
		{[]ErrorCode{ErrCodeCombinationFailed, ErrCodeCombinationPanic}, 700, 799},
		{[]ErrorCode{ErrCodeCallbackFailed}, 800, 899},
	}

	for _, r := range ranges {
		for _, code := range r.codes {
			suite.GreaterOrEqual(code, r.low)
			suite.LessOrEqual(code, r.high)
		}
	}
}

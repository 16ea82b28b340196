package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/testutil"
)

func TestSafeExecute_Success(t *testing.T) {
	err := SafeExecute(testutil.NewMockLogger(), "test_operation", func() error {
		return nil
	})

	assert.NoError(t, err)
}

func TestSafeExecute_Error(t *testing.T) {
	expectedErr := errors.New("test error")

	err := SafeExecute(testutil.NewMockLogger(), "test_operation", func() error {
		return expectedErr
	})

	assert.Equal(t, expectedErr, err)
}

func TestSafeExecute_Panic(t *testing.T) {
	logger := testutil.NewMockLogger()

	err := SafeExecute(logger, "test_operation", func() error {
		panic("test panic")
	})

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "panic in test_operation: test panic", err.Error())
	assert.Equal(t, "test panic", pe.Value)
	assert.NotEmpty(t, pe.Stack)

	entry, ok := logger.FindLog("panic_recovered")
	require.True(t, ok)
	assert.Equal(t, "error", entry.Level)
	assert.Equal(t, "test_operation", entry.Fields["operation"])
}

func TestSafeExecute_NilLogger(t *testing.T) {
	err := SafeExecute(nil, "test_operation", func() error {
		panic("test panic")
	})

	assert.ErrorContains(t, err, "panic")
}

func TestSafeExecuteWithResult(t *testing.T) {
	logger := testutil.NewMockLogger()

	result, err := SafeExecuteWithResult(logger, "test_operation", func() (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, result)

	expectedErr := errors.New("test error")
	result, err = SafeExecuteWithResult(logger, "test_operation", func() (int, error) {
		return 7, expectedErr
	})
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 7, result)
}

func TestSafeExecuteWithResult_Panic(t *testing.T) {
	result, err := SafeExecuteWithResult(testutil.NewMockLogger(), "test_operation", func() (*string, error) {
		var m map[string]int
		m["boom"] = 1
		return nil, nil
	})

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "panic in test_operation")
	assert.Nil(t, result)
}

func TestSafeGo_Success(t *testing.T) {
	done := make(chan struct{})

	SafeGo(testutil.NewMockLogger(), "test_goroutine", func() {
		close(done)
	}, nil)

	<-done
}

func TestSafeGo_Panic(t *testing.T) {
	logger := testutil.NewMockLogger()
	recoveredCh := make(chan any, 1)

	SafeGo(logger, "test_goroutine", func() {
		panic("goroutine panic")
	}, func(r any) {
		recoveredCh <- r
	})

	assert.Equal(t, "goroutine panic", <-recoveredCh)
	assert.True(t, logger.HasLog("error", "goroutine_panic_recovered"))
}

func TestSafeGo_NilLoggerAndCallback(t *testing.T) {
	done := make(chan struct{})

	SafeGo(nil, "test_goroutine", func() {
		defer close(done)
		panic("goroutine panic")
	}, nil)

	<-done
}

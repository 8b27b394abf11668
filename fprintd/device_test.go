package fprintd_test

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/coder/fprint/fprintd"
	"github.com/coder/fprint/fprintd/fprintdtest"
	"github.com/coder/fprint/testutil"
)

func TestDefaultDevice(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{})

		path, err := fprintd.DefaultDevice(ctx, d)
		require.NoError(t, err)
		require.Equal(t, fprintdtest.DevicePath, path)

		calls := d.Calls()
		require.Len(t, calls, 1)
		require.Equal(t, fprintd.ManagerPath, calls[0].Path)
		require.Equal(t, fprintd.MethodGetDefaultDevice, calls[0].Method)
	})

	t.Run("CallError", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{
			LookupErr: fprintdtest.ErrorReply(fprintd.ServiceName+".Error.NoSuchDevice", "no devices"),
		})

		_, err := fprintd.DefaultDevice(ctx, d)
		require.Error(t, err)
		require.True(t, fprintd.IsStage(err, fprintd.StageLookup))
		require.Equal(t, fprintd.ServiceName+".Error.NoSuchDevice", fprintd.ErrorName(err))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{NoDevice: true})

		_, err := fprintd.DefaultDevice(ctx, d)
		require.ErrorIs(t, err, fprintd.ErrNoDevice)
		require.True(t, fprintd.IsStage(err, fprintd.StageLookup))
	})
}

func TestClaim(t *testing.T) {
	t.Parallel()

	t.Run("SendsEmptyAppID", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{})

		dev, err := fprintd.Claim(ctx, d, fprintdtest.DevicePath, testutil.Logger(t))
		require.NoError(t, err)
		require.Equal(t, fprintdtest.DevicePath, dev.Path())
		require.True(t, d.Claimed())

		calls := d.Calls()
		require.Len(t, calls, 1)
		require.Equal(t, fprintd.MethodClaim, calls[0].Method)
		require.Equal(t, []interface{}{""}, calls[0].Args)
	})

	t.Run("Busy", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{
			ClaimErr: fprintdtest.ErrorReply(fprintd.ServiceName+".Error.AlreadyInUse", "busy"),
		})

		_, err := fprintd.Claim(ctx, d, fprintdtest.DevicePath, testutil.Logger(t))
		require.Error(t, err)
		require.True(t, fprintd.IsStage(err, fprintd.StageClaim))
		require.False(t, fprintd.IsStage(err, fprintd.StageLookup))
		require.False(t, d.Claimed())
	})

	t.Run("EmptyPath", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{})

		_, err := fprintd.Claim(ctx, d, "", testutil.Logger(t))
		require.ErrorIs(t, err, fprintd.ErrNoDevice)
		require.Empty(t, d.Calls())
	})
}

func TestRelease(t *testing.T) {
	t.Parallel()

	t.Run("Once", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{})

		dev, err := fprintd.Claim(ctx, d, fprintdtest.DevicePath, testutil.Logger(t))
		require.NoError(t, err)
		require.NoError(t, dev.Release(ctx))
		require.False(t, d.Claimed())

		// A second release is a warning, not a second daemon call.
		require.NoError(t, dev.Release(ctx))
		require.Equal(t, 1, d.Count("Release"))
	})

	t.Run("DaemonError", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		d := fprintdtest.New(fprintdtest.Options{
			ReleaseErr: fprintdtest.ErrorReply(fprintd.ServiceName+".Error.ClaimDevice", "not claimed"),
		})

		dev, err := fprintd.Claim(ctx, d, fprintdtest.DevicePath, testutil.Logger(t))
		require.NoError(t, err)
		err = dev.Release(ctx)
		require.Error(t, err)
		assert.Equal(t, fprintd.ServiceName+".Error.ClaimDevice", fprintd.ErrorName(err))
	})
}

func TestErrorName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", fprintd.ErrorName(nil))
	require.Equal(t, "", fprintd.ErrorName(xerrors.New("plain")))
	require.Equal(t, fprintd.ErrorNoEnrolledPrints,
		fprintd.ErrorName(xerrors.Errorf("wrapped: %w", dbus.Error{Name: fprintd.ErrorNoEnrolledPrints})))
	require.Equal(t, fprintd.ErrorNoEnrolledPrints,
		fprintd.ErrorName(&dbus.Error{Name: fprintd.ErrorNoEnrolledPrints}))
}

func TestSetupError(t *testing.T) {
	t.Parallel()

	cause := xerrors.New("boom")
	err := xerrors.Errorf("outer: %w", &fprintd.SetupError{Stage: fprintd.StageConnect, Err: cause})
	require.True(t, fprintd.IsStage(err, fprintd.StageConnect))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connect: boom")
	require.False(t, fprintd.IsStage(cause, fprintd.StageConnect))
}

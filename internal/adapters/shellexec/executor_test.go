//go:build unix

package shellexec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/queuectl/internal/domain/model"
)

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		wantSuccess bool
		wantCode    int
		wantOutput  string
		wantError   string
	}{
		{
			name:        "success captures stdout",
			command:     "echo hello",
			wantSuccess: true,
			wantOutput:  "hello\n",
		},
		{
			name:      "non-zero exit",
			command:   "exit 1",
			wantCode:  1,
			wantError: "Exit code 1",
		},
		{
			name:      "stderr appended",
			command:   "echo oops >&2; exit 3",
			wantCode:  3,
			wantError: "Exit code 3: oops",
		},
		{
			name:      "unknown command",
			command:   "definitely-not-a-real-command-xyz",
			wantCode:  127,
			wantError: "Exit code 127",
		},
		{
			name:        "shell features",
			command:     "printf 'a\\nb\\n' | wc -l | tr -d ' '",
			wantSuccess: true,
			wantOutput:  "2\n",
		},
	}

	exec := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec.Execute(context.Background(), tt.command, 0)

			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			if tt.wantOutput != "" {
				assert.Equal(t, tt.wantOutput, res.Output)
			}
			if tt.wantError != "" {
				assert.True(t, strings.HasPrefix(res.Error, tt.wantError), "got %q", res.Error)
			} else {
				assert.Empty(t, res.Error)
			}
			assert.False(t, res.TimedOut)
		})
	}
}

func TestExecutor_Timeout(t *testing.T) {
	exec := New(Options{WaitDelay: 500 * time.Millisecond})

	start := time.Now()
	res := exec.Execute(context.Background(), "sleep 10 & sleep 10; wait", time.Second)

	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
	assert.Equal(t, "Job timed out after 1 seconds", res.Error)
	assert.Less(t, time.Since(start), 5*time.Second, "process group should be killed")
	assert.True(t, errors.Is(res.Err(), model.ErrTimeoutExceeded))
}

func TestExecutor_BackgroundChildKeepsPipesOpen(t *testing.T) {
	start := time.Now()
	res := New(Options{WaitDelay: 300 * time.Millisecond}).Execute(context.Background(), "sleep 3 & echo started", 0)

	require.True(t, res.Success, "got error %q", res.Error)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "started\n", res.Output)
	assert.Empty(t, res.Error)
	assert.NoError(t, res.Err())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecutor_FinishesWithinTimeout(t *testing.T) {
	res := New(Options{}).Execute(context.Background(), "echo fast", 5*time.Second)
	require.True(t, res.Success)
	assert.Equal(t, "fast\n", res.Output)
	assert.NoError(t, res.Err())
}

func TestExecutor_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	res := New(Options{WaitDelay: 500 * time.Millisecond}).Execute(ctx, "sleep 10", 0)

	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "Execution error: context canceled", res.Error)
	assert.True(t, errors.Is(res.Err(), model.ErrExecutionFailure))
}

func TestExecutor_LaunchFailure(t *testing.T) {
	res := New(Options{Shell: "/nonexistent/shell"}).Execute(context.Background(), "true", 0)

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, strings.HasPrefix(res.Error, "Execution error: "), "got %q", res.Error)
}

func TestExecutor_OutputLimit(t *testing.T) {
	res := New(Options{OutputLimit: 100}).Execute(context.Background(), "head -c 1000 /dev/zero | tr '\\0' 'x'", 0)

	require.True(t, res.Success)
	assert.Len(t, res.Output, 100)
}

func TestExecutor_SignalExitCode(t *testing.T) {
	res := New(Options{}).Execute(context.Background(), "kill -9 $$", 0)

	assert.False(t, res.Success)
	assert.Equal(t, -9, res.ExitCode)
	assert.Equal(t, "Exit code -9", res.Error)
}

func TestExecutor_Env(t *testing.T) {
	res := New(Options{Env: []string{"QUEUECTL_TEST_VALUE=42"}}).
		Execute(context.Background(), "echo $QUEUECTL_TEST_VALUE", 0)

	require.True(t, res.Success)
	assert.Equal(t, "42\n", res.Output)
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(4)

	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, b.Truncated())

	n, err = b.Write([]byte("cdef"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", b.String())
	assert.True(t, b.Truncated())

	n, err = b.Write([]byte("g"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "abcd", b.String())
}

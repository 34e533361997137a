package main

import (
	"errors"
	"log"
	"os"
	"testing"

	"github.com/harrisonrobin/planbridge/pkg/config"
	"github.com/harrisonrobin/planbridge/pkg/model"
	"github.com/harrisonrobin/planbridge/pkg/tree"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestCheckTree(t *testing.T) {
	depth := &model.DepthError{Title: "Deep", Level: 5}
	err := checkTree(depth)
	var logged *loggedError
	require.True(t, errors.As(err, &logged))
	assert.ErrorIs(t, err, depth)

	err = checkTree(&tree.CycleError{Path: []string{"a", "b", "a"}})
	require.True(t, errors.As(err, &logged))
	assert.ErrorIs(t, err, model.ErrMalformedInput)

	plain := errors.New("disk full")
	assert.Equal(t, plain, checkTree(plain))
}

func TestRunClosesLogOnFatalTree(t *testing.T) {
	c := &closeCounter{}
	root := &cobra.Command{
		Use:           "planbridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logCloser = c
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return checkTree(&model.DepthError{Title: "Deep", Level: 5})
		},
	}
	root.SetArgs([]string{})

	assert.Equal(t, 1, run(root))
	assert.Equal(t, 1, c.closed)
	assert.Nil(t, logCloser)
}

func TestSetupLoggingOnlyInDebug(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	closer, err := setupLogging(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, closer)

	closer, err = setupLogging(&config.Config{Debug: true})
	require.NoError(t, err)
	require.NotNil(t, closer)
	t.Cleanup(func() {
		closer.Close()
		resetLog()
	})

	dir, err := config.GetConfigDir()
	require.NoError(t, err)
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func resetLog() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)
}

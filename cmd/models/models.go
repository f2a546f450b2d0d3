// Package models implements the models command for the YOLO model library.
package models

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command creates the models command and its subcommands.
func Command(env *session.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage imported YOLO models",
	}
	cmd.AddCommand(listCommand(env), addCommand(env), removeCommand(env), activateCommand(env))
	return cmd
}

func listCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			list, err := sess.App.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			return env.PrintJSON(list)
		},
	}
}

func addCommand(env *session.Env) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Copy model files into the library",
		Long:  "Import one or more .pt/.onnx files. With several paths, conversion progress is streamed as JSON lines.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return errors.New(errors.NewStd("--name can only be used with a single path")).
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}

			sess, err := env.Open(cmd.Context(), len(args) > 1)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			if len(args) == 1 {
				m, err := sess.App.AddModel(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				return env.PrintJSON(m)
			}
			_, err = sess.App.AddModels(cmd.Context(), args)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the file name)")
	return cmd
}

func removeCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a model and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			return sess.App.RemoveModel(cmd.Context(), id)
		},
	}
}

func activateCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Select the model used for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			return sess.App.SetActiveModel(cmd.Context(), id)
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(fmt.Errorf("invalid model id %q", s)).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	return id, nil
}

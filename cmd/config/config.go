// Package config implements the config command: inspect host settings and
// edit the stored inference configuration.
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/datastore"
	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command creates the config command and its subcommands.
func Command(env *session.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	cmd.AddCommand(showCommand(env), dumpCommand(env), setCommand(env))
	return cmd
}

func showCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored inference configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			cfg, err := sess.App.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			return env.PrintJSON(cfg)
		},
	}
}

func dumpCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the effective host settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.Dump(env.Stdout, env.Settings)
		},
	}
}

func setCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:     "set key=value...",
		Short:   "Change stored inference settings",
		Example: "  palm-counting-ai config set conf=0.25 device=cuda active_model_id=null",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			cfg, err := sess.App.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if err := applyAssignments(&cfg, args); err != nil {
				return err
			}
			if err := sess.App.SaveConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			return env.PrintJSON(cfg)
		},
	}
}

// applyAssignments sets AppConfig fields addressed by their JSON names.
// Nullable fields accept "null".
func applyAssignments(cfg *datastore.AppConfig, assigns []string) error {
	fields := fieldsByJSONName()
	rv := reflect.ValueOf(cfg).Elem()

	for _, a := range assigns {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return invalid(fmt.Sprintf("expected key=value, got %q", a))
		}
		idx, known := fields[key]
		if !known {
			return invalid(fmt.Sprintf("unknown config key %q", key))
		}
		f := rv.Field(idx)

		switch f.Kind() {
		case reflect.String:
			f.SetString(value)
		case reflect.Pointer:
			if value == "null" || value == "" {
				f.Set(reflect.Zero(f.Type()))
				continue
			}
			switch f.Type().Elem().Kind() {
			case reflect.String:
				v := value
				f.Set(reflect.ValueOf(&v))
			case reflect.Int64:
				n, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return invalid(fmt.Sprintf("%s must be an integer or null, got %q", key, value))
				}
				f.Set(reflect.ValueOf(&n))
			}
		}
	}
	return nil
}

func fieldsByJSONName() map[string]int {
	t := reflect.TypeFor[datastore.AppConfig]()
	out := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = i
	}
	return out
}

func invalid(msg string) error {
	return errors.New(errors.NewStd(msg)).
		Component("cli").
		Category(errors.CategoryValidation).
		Build()
}

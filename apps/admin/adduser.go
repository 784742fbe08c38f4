package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/user"
)

func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.describeValidation(err)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s) as %s\n", usr.Username, usr.ID, usr.Role)
	return nil
}

// describeValidation flattens validation errors into one "field: message" line each.
func (cli *commandLine) describeValidation(err error) error {
	var msgs []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for fld, msg := range core.TranslateErrors(e, cli.translator) {
			msgs = append(msgs, fld+": "+msg)
		}
	case *core.ValidationError:
		for fld, msg := range e.FieldMap() {
			msgs = append(msgs, fld+": "+msg)
		}
	}
	if len(msgs) == 0 {
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "\n"))
}

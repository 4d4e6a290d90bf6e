package iterator

import (
	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
)

func unsupportedKind(k queryplan.Kind) error {
	return queryerr.BadProtocol("no iterator implements plan step kind %v", k)
}

func buildAll(steps []*queryplan.Step) ([]Iter, error) {
	out := make([]Iter, len(steps))
	for i, s := range steps {
		it, err := Build(s)
		if err != nil {
			return nil, err
		}
		out[i] = it
	}
	return out, nil
}

package repository

import (
	"testing"
)

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres operator want ILIKE got %s", got)
	}
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite operator want LIKE got %s", got)
	}
}

func TestBuildLikeConditionByDialect(t *testing.T) {
	condition, args := buildLikeConditionByDialect("sqlite", "ab_1", "card_id", " ")
	if condition != `card_id LIKE ? ESCAPE '\'` {
		t.Fatalf("unexpected condition: %s", condition)
	}
	if len(args) != 1 || args[0] != `%ab\_1%` {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestDBDialectNameNil(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db dialect want sqlite got %s", got)
	}
}

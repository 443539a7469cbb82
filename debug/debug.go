package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Exec   bool
	Batch  bool
	Ingest bool
	Cond   bool
	Expr   bool
	Schema bool
}

var d *debug

func init() {
	d = &debug{}
	d.Exec = boolEnv("SP_DEBUG_EXEC")
	d.Batch = boolEnv("SP_DEBUG_BATCH")
	d.Ingest = boolEnv("SP_DEBUG_INGEST")
	d.Cond = boolEnv("SP_DEBUG_COND")
	d.Expr = boolEnv("SP_DEBUG_EXPR")
	d.Schema = boolEnv("SP_DEBUG_SCHEMA")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Exec() bool {
	return d.Exec
}
func Batch() bool {
	return d.Batch
}
func Ingest() bool {
	return d.Ingest
}
func Cond() bool {
	return d.Cond
}
func Expr() bool {
	return d.Expr
}
func Schema() bool {
	return d.Schema
}

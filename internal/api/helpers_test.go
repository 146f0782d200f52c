package api

import (
	"strconv"

	"gopkg.in/guregu/null.v4"
)

func nullInt(v int64) null.Int { return null.IntFrom(v) }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type joinReq struct {
	Code   string `validate:"required,len=8"`
	Rating int    `validate:"omitempty,gte=1,lte=5"`
}

func TestMapValidStruct(t *testing.T) {
	assert.Nil(t, Map(joinReq{Code: "AbCd2345", Rating: 3}))
	assert.Nil(t, Map(joinReq{Code: "AbCd2345"}), "omitempty skips the zero rating")
}

func TestMapReportsFieldErrors(t *testing.T) {
	errs := Map(joinReq{})
	assert.Equal(t, map[string]string{"code": "is required"}, errs)

	errs = Map(joinReq{Code: "short", Rating: 9})
	assert.Equal(t, "must be exactly 8 characters", errs["code"])
	assert.Equal(t, "must be <= 5", errs["rating"])
}

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueConstraint(t *testing.T) {
	err := fmt.Errorf("insert routine: %w", &pq.Error{Code: "23505", Constraint: "ux_routines_teacher_slot_active"})

	name, ok := UniqueConstraint(err)
	assert.True(t, ok)
	assert.Equal(t, "ux_routines_teacher_slot_active", name)
}

func TestUniqueConstraintIgnoresOtherErrors(t *testing.T) {
	_, ok := UniqueConstraint(&pq.Error{Code: "23503", Constraint: "fk_routines_time_slot"})
	assert.False(t, ok)

	_, ok = UniqueConstraint(errors.New("boom"))
	assert.False(t, ok)
}

func TestExclusionConstraint(t *testing.T) {
	err := fmt.Errorf("create time slot: %w", &pq.Error{Code: "23P01", Constraint: "ex_time_slots_no_overlap"})

	name, ok := ExclusionConstraint(err)
	assert.True(t, ok)
	assert.Equal(t, "ex_time_slots_no_overlap", name)

	_, ok = UniqueConstraint(err)
	assert.False(t, ok)
	_, ok = ExclusionConstraint(&pq.Error{Code: "23505", Constraint: "ux_routines_room_slot_active"})
	assert.False(t, ok)
}

package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/errs"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "********4321", MaskAccount("987654324321"))
	assert.Equal(t, "***", MaskAccount("123"))
	assert.Equal(t, "", MaskAccount(""))
	assert.Equal(t, "SBIN0001234", BankAccount{AccountNumber: "11112222", IFSC: "SBIN0001234"}.Masked().IFSC)
}

func TestListPayable(t *testing.T) {
	exit := date(2024, 4, 10)
	oldExit := date(2024, 2, 1)
	store := NewMemoryStore(
		Employee{ID: "e1", Code: "E001", Status: StatusActive, JoinDate: date(2022, 1, 1)},
		Employee{ID: "e2", Code: "E002", Status: StatusInactive, JoinDate: date(2022, 1, 1), ExitDate: &exit},
		Employee{ID: "e3", Code: "E003", Status: StatusInactive, JoinDate: date(2022, 1, 1), ExitDate: &oldExit},
		Employee{ID: "e4", Code: "E004", Status: StatusActive, JoinDate: date(2024, 5, 2)},
		Employee{ID: "e5", Code: "E005", Status: StatusInactive, JoinDate: date(2022, 1, 1)},
	)

	got, err := store.ListPayable(context.Background(), date(2024, 4, 1), date(2024, 4, 30))
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, emp := range got {
		ids = append(ids, emp.ID)
	}
	assert.Equal(t, []string{"e1", "e2"}, ids)
}

func TestGetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

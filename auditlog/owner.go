// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package auditlog

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Owner of the log files.
type Owner struct {
	UID int
	GID int
}

// OwnerFromSudo returns the invoking user when running under sudo.
func OwnerFromSudo(getenv func(string) string) (Owner, bool) {
	uid, err := strconv.Atoi(getenv("SUDO_UID"))
	if err != nil {
		return Owner{}, false
	}

	gid, err := strconv.Atoi(getenv("SUDO_GID"))
	if err != nil {
		return Owner{}, false
	}

	return Owner{UID: uid, GID: gid}, true
}

func (o Owner) chown(path string) error {
	if err := os.Chown(path, o.UID, o.GID); err != nil {
		return errors.Wrapf(err, "failed to change owner of %s", path)
	}

	return nil
}

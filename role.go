/*
Copyright 2025 ChainProof Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package chainproof

import (
	"context"
	"fmt"

	"github.com/chainproof/chainproof/internal/apierror"
	"github.com/chainproof/chainproof/model"
)

// AssignRole registers the account under the given role label and returns
// the ledger transaction reference. First assignment wins; the ledger
// rejects a change of role.
func (c *Chainproof) AssignRole(ctx context.Context, account, roleLabel string) (string, error) {
	role, err := model.ParseRole(roleLabel)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), nil)
	}
	if role == model.RoleNone {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, "role none cannot be assigned", nil)
	}
	ref, err := c.store.AssignRole(ctx, account, role)
	if err != nil {
		return "", err
	}
	c.cache.Delete(ctx, roleCacheKey(account))
	return ref, nil
}

// GetRole reads the registered role of an account, RoleNone when the
// account never registered.
func (c *Chainproof) GetRole(ctx context.Context, account string) (model.Role, error) {
	var cached string
	if err := c.cache.Get(ctx, roleCacheKey(account), &cached); err == nil && cached != "" {
		if role, parseErr := model.ParseRole(cached); parseErr == nil {
			return role, nil
		}
	}
	role, err := c.store.GetRole(ctx, account)
	if err != nil {
		return model.RoleNone, err
	}
	if role != model.RoleNone {
		_ = c.cache.Set(ctx, roleCacheKey(account), role.String(), roleCacheTTL)
	}
	return role, nil
}

func roleCacheKey(account string) string {
	return fmt.Sprintf("role:%s", account)
}

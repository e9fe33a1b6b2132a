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

package model

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/chainproof/chainproof/model"
)

func roleLabelValidation(value interface{}) error {
	label, _ := value.(string)
	if _, err := model.ParseRole(label); err != nil {
		return fmt.Errorf("role must be one of producer, processor, warehouse, transporter, customer")
	}
	return nil
}

func childSpecsValidation(value interface{}) error {
	children, _ := value.([]ChildSpec)
	for i, child := range children {
		if child.Quantity == 0 {
			return fmt.Errorf("children[%d]: quantity must be greater than zero", i)
		}
		if child.TrackingCode == "" {
			return fmt.Errorf("children[%d]: tracking_code is required", i)
		}
	}
	return nil
}

func (a *AssignRole) ValidateAssignRole() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Account, validation.Required),
		validation.Field(&a.Role, validation.Required, validation.By(roleLabelValidation)),
	)
}

func (h *HarvestBatch) ValidateHarvestBatch() error {
	return validation.ValidateStruct(h,
		validation.Field(&h.Actor, validation.Required),
		validation.Field(&h.Origin, validation.Required),
		validation.Field(&h.Quantity, validation.Required),
		validation.Field(&h.TrackingCode, validation.Required),
	)
}

func (s *SplitBatch) ValidateSplitBatch() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Actor, validation.Required),
		validation.Field(&s.Children, validation.Required, validation.By(childSpecsValidation)),
	)
}

func (m *MergeBatches) ValidateMergeBatches() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Actor, validation.Required),
		validation.Field(&m.InputIDs, validation.Required),
		validation.Field(&m.Origin, validation.Required),
		validation.Field(&m.TrackingCode, validation.Required),
	)
}

func (t *TransformBatches) ValidateTransformBatches() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Actor, validation.Required),
		validation.Field(&t.InputIDs, validation.Required),
		validation.Field(&t.ProcessType, validation.Required),
		validation.Field(&t.Origin, validation.Required),
		validation.Field(&t.Quantity, validation.Required),
		validation.Field(&t.TrackingCode, validation.Required),
	)
}

func (i *InitiateTransfer) ValidateInitiateTransfer() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Actor, validation.Required),
		validation.Field(&i.To, validation.Required),
	)
}

func (r *ReceiveBatch) ValidateReceiveBatch() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Actor, validation.Required),
	)
}

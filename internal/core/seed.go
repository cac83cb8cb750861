package core

import (
	"context"
	"time"

	"tirecore/pkg/domain"
)

type seedCombination struct {
	front, rear string
	quantity    int
	purpose     string
	notes       string
}

type seedOrder struct {
	combination int
	objective   string
	vehicle     string
	schedule    string
	quantity    int
	status      []domain.OrderStatus // applied after creation
}

// SeedDemo loads the November round dataset into an empty ledger. It reports
// false and changes nothing when the ledger already holds combinations.
func (s *Service) SeedDemo(ctx context.Context) (bool, error) {
	loaded := false
	_, err := s.run(ctx, "seed_demo", func(tx Transaction) (string, error) {
		if len(tx.Snapshot().ListCombinations()) > 0 {
			return "", nil
		}
		combos := []seedCombination{
			{"FR-A", "RR-a", 6, "기준 품질 검증", "조합평가 기본 세트"},
			{"FR-A", "RR-b", 6, "고하중 내구", "하중 변화 영향도"},
			{"FR-B", "RR-b", 4, "열화 프로파일", "가류 조건 변경"},
		}
		comboIDs := make([]string, 0, len(combos))
		for _, c := range combos {
			front, rear, err := s.catalog.Pair(c.front, c.rear)
			if err != nil {
				return "", err
			}
			notes := c.notes
			created, err := tx.CreateCombination(domain.SpecCombination{Front: front, Rear: rear, Quantity: c.quantity, Purpose: c.purpose, Notes: &notes})
			if err != nil {
				return "", err
			}
			comboIDs = append(comboIDs, created.ID)
		}
		orders := []seedOrder{
			{0, "도심/고속 복합 주행 내구", "모하비 3.0", "2024-11-04", 6, []domain.OrderStatus{domain.OrderStatusInProgress}},
			{1, "고하중 트레드 온도 비교", "포터 EV", "2024-11-12", 6, nil},
			{2, "가류 조건별 제동성", "카니발 HEV", "2024-11-20", 4, []domain.OrderStatus{domain.OrderStatusCancelled}},
		}
		orderIDs := make([]string, 0, len(orders))
		for _, o := range orders {
			created, err := tx.AppendOrder(domain.TestOrder{CombinationID: comboIDs[o.combination], Objective: o.objective, Vehicle: o.vehicle, Schedule: o.schedule, Quantity: o.quantity})
			if err != nil {
				return "", err
			}
			orderIDs = append(orderIDs, created.ID)
			for _, status := range o.status {
				if _, err := tx.UpdateOrder(created.ID, func(t *domain.TestOrder) error {
					t.Status = status
					return nil
				}); err != nil {
					return "", err
				}
			}
		}
		sheets := []domain.EvaluationSheet{
			{TestOrderID: orderIDs[0], SpecCode: "A-a", MCode: "M-10452", Manufacturing: "금호 울산 / 2024.10", Curing: "170°C / 12min", Carving: "7421", Buffing: "0.3mm"},
			{TestOrderID: orderIDs[1], SpecCode: "A-b", MCode: "M-10453", Manufacturing: "금호 곡성 / 2024.10", Curing: "168°C / 11min", Carving: "7452", Buffing: "0.5mm"},
		}
		for _, sheet := range sheets {
			if _, err := tx.CreateSheet(sheet); err != nil {
				return "", err
			}
		}
		kst := time.FixedZone("KST", 9*60*60)
		if _, err := tx.PrependResults([]domain.ResultRecord{
			{TestOrderID: orderIDs[0], FileName: "20241104_durability_set1.xlsx", UploadedAt: time.Date(2024, 11, 5, 9, 21, 0, 0, kst).UTC(), Status: domain.ResultStatusMatched, Batch: s.batchID()},
			{TestOrderID: orderIDs[1], FileName: "20241112_highload_temp.csv", UploadedAt: time.Date(2024, 11, 13, 14, 2, 0, 0, kst).UTC(), Status: domain.ResultStatusPending, Batch: s.batchID()},
		}); err != nil {
			return "", err
		}
		loaded = true
		return orderIDs[0], nil
	})
	if err != nil {
		return false, err
	}
	return loaded, nil
}

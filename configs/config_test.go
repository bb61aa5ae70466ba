package config

import (
	"strings"
	"testing"

	"github.com/anjiri1684/tutor_desk/services"
)

func envOf(m map[string]string) func(string) string {
	env := map[string]string{
		"COMPANY_NAME":    "Studio Lilas",
		"COMPANY_ADDRESS": "5 place des Vosges 75004 Paris",
		"COMPANY_SIRET":   "12345678900011",
	}
	for k, v := range m {
		env[k] = v
	}
	return func(k string) string { return env[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"DATABASE_URL": "postgres://localhost/tutor"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != DriverPostgres || cfg.ReconcileCron != "0 */6 * * *" {
		t.Errorf("got port=%s driver=%s cron=%s", cfg.Port, cfg.StoreDriver, cfg.ReconcileCron)
	}
	if cfg.Location.String() != "Europe/Paris" {
		t.Errorf("Location: got %s", cfg.Location)
	}
	if cfg.Grid.StartHour != 9 || cfg.Grid.EndHour != 20 || cfg.Grid.Grouping != services.GroupingRunningMax {
		t.Errorf("Grid: got %+v", cfg.Grid)
	}
	if len(cfg.PricePoints) != 1 || cfg.PricePoints[0].Label != "nova" {
		t.Errorf("PricePoints: got %+v", cfg.PricePoints)
	}
	if cfg.Issuer.Siret != "12345678900011" || cfg.Issuer.AgreementNumber != "" {
		t.Errorf("Issuer: got %+v", cfg.Issuer)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"STORE_DRIVER":       "Mongo",
		"MONGO_TRANSACTIONS": "true",
		"AGENDA_START_HOUR":  "8",
		"AGENDA_GROUPING":    "previous",
		"PRICE_POINTS":       "nova:60, court:45.5",
		"COMPANY_NAME":       "Atelier Violon",
		"COMPANY_AGREEMENT":  "123456789",
		"TIMEZONE":           "UTC",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreDriver != DriverMongo || !cfg.MongoTransactions {
		t.Errorf("store: got %s tx=%v", cfg.StoreDriver, cfg.MongoTransactions)
	}
	if cfg.Grid.StartHour != 8 || cfg.Grid.Grouping != services.GroupingPrevious {
		t.Errorf("Grid: got %+v", cfg.Grid)
	}
	if len(cfg.PricePoints) != 2 || cfg.PricePoints[1].Price != 45.5 {
		t.Errorf("PricePoints: got %+v", cfg.PricePoints)
	}
	if cfg.Issuer.CompanyName != "Atelier Violon" || cfg.Issuer.AgreementNumber != "123456789" {
		t.Errorf("Issuer: got %+v", cfg.Issuer)
	}
}

func TestFromEnvReportsEveryError(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"STORE_DRIVER":        "postgres",
		"AGENDA_START_HOUR":   "noon",
		"AGENDA_GROUPING":     "latest",
		"ADMIN_PASSWORD_HASH": "$2a$10$abc",
		"TIMEZONE":            "Mars/Olympus",
		"COMPANY_SIRET":       " ",
	}))
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"DATABASE_URL", "AGENDA_START_HOUR", "AGENDA_GROUPING", "JWT_SECRET", "TIMEZONE", "COMPANY_SIRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestParsePricePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"nova:60", 1, false},
		{"nova:60,,court:40", 2, false},
		{"nova", 0, true},
		{":60", 0, true},
		{"nova:abc", 0, true},
		{"nova:-1", 0, true},
		{" , ", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePricePoints(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got err %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d points, want %d", len(got), tt.want)
			}
		})
	}
}

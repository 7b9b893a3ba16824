package csv_test

import (
	"strings"
	"testing"

	"github.com/aretw0/guiche/internal/adapters/csv"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadClients_Portuguese(t *testing.T) {
	in := "cpf,nome,data_nascimento,score,limite_atual\n" +
		"521.892.938-71,Ana Souza,17/05/1990,650,7000\n" +
		"11122233344,Bruno Lima,1985-12-01,\"1200,5\",\"800,00\"\n"

	clients, err := csv.ReadClients(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, clients, 2)

	assert.Equal(t, domain.Client{ID: "52189293871", Name: "Ana Souza", BirthDate: "1990-05-17", Score: 650, Limit: 7000}, clients[0])
	assert.Equal(t, 1000.0, clients[1].Score, "score is clamped")
	assert.Equal(t, 800.0, clients[1].Limit)
}

func TestReadClients_EnglishHeaderAnyOrder(t *testing.T) {
	in := "limit,score,name,birth_date,id\n7000,650,Ana,1990-05-17,52189293871\n"
	clients, err := csv.ReadClients(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "52189293871", clients[0].ID)
}

func TestReadClients_Errors(t *testing.T) {
	_, err := csv.ReadClients(strings.NewReader("cpf,nome\n"))
	assert.ErrorIs(t, err, csv.ErrMissingColumn)

	_, err = csv.ReadClients(strings.NewReader("cpf,nome,data_nascimento,score,limite_atual\n123,X,1990-01-01,1,1\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = csv.ReadClients(strings.NewReader("cpf,nome,data_nascimento,score,limite_atual\n52189293871,X,1990-01-01,1,-5\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestReadBands(t *testing.T) {
	in := "score_min,score_max,limite_maximo\n0,300,1000\n301,600,8000\n601,1000,20000\n"
	bands, err := csv.ReadBands(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bands, 3)
	assert.Equal(t, domain.ScoreBand{Min: 601, Max: 1000, MaxLimit: 20000}, bands[2])

	_, err = csv.ReadBands(strings.NewReader("score_min,score_max,limite_maximo\n500,100,1\n"))
	assert.ErrorContains(t, err, "inverted")
}

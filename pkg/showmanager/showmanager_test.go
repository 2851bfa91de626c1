package showmanager

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testOrganizer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

type fakeCaller struct {
	output []byte
	err    error
	msg    ethereum.CallMsg
	block  *big.Int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.msg = msg
	f.block = block
	return f.output, f.err
}

func sampleShow() Show {
	price, _ := new(big.Int).SetString("1000000000000000000", 10)
	return Show{
		ID:           big.NewInt(7),
		Name:         "Demo Show",
		Description:  "A show",
		Location:     "City Hall",
		StartTime:    big.NewInt(1735689600),
		EndTime:      big.NewInt(1735696800),
		TotalTickets: big.NewInt(1000),
		TicketPrice:  price,
		TicketsSold:  big.NewInt(10),
		MetadataURI:  "ipfs://demo",
		Status:       StatusActive,
	}
}

// ---- Signatures ----

func TestSignatures(t *testing.T) {
	assert.Equal(t,
		crypto.Keccak256Hash([]byte("ShowCreated(uint256,address,string,uint256,uint256,string)")),
		ShowCreatedTopic())

	data, err := PackUpdateShow(big.NewInt(1), "n", "u")
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("updateShow(uint256,string,string)"))[:4], data[:4])

	getShow := ABI().Methods[MethodGetShow]
	assert.Equal(t, crypto.Keccak256([]byte("getShow(uint256)"))[:4], getShow.ID)
}

// ---- ShowCreated ----

func TestParseShowCreated_RoundTrip(t *testing.T) {
	want := ShowCreated{
		ShowID:    new(big.Int).Lsh(big.NewInt(1), 200),
		Organizer: testOrganizer,
		Name:      "Opening Night",
		StartTime: big.NewInt(1735689600),
		EndTime:   big.NewInt(1735696800),
		Venue:     "Opera House",
	}
	log, err := NewShowCreatedLog(testContract, want)
	require.NoError(t, err)
	assert.True(t, IsShowCreated(&log))

	got, err := ParseShowCreated(&log)
	require.NoError(t, err)
	assert.Equal(t, 0, want.ShowID.Cmp(got.ShowID))
	assert.Equal(t, testOrganizer, got.Organizer)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, 0, want.StartTime.Cmp(got.StartTime))
	assert.Equal(t, 0, want.EndTime.Cmp(got.EndTime))
	assert.Equal(t, want.Venue, got.Venue)
}

func TestParseShowCreated_Errors(t *testing.T) {
	valid, err := NewShowCreatedLog(testContract, ShowCreated{
		ShowID:    big.NewInt(1),
		Organizer: testOrganizer,
		StartTime: big.NewInt(1),
		EndTime:   big.NewInt(2),
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		log     types.Log
		wantErr error
	}{
		{"no topics", types.Log{}, ErrNotShowCreated},
		{"other signature", types.Log{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}}, ErrNotShowCreated},
		{"missing indexed topics", types.Log{Topics: []common.Hash{ShowCreatedTopic()}, Data: valid.Data}, ErrMalformedLog},
		{"truncated data", types.Log{Topics: valid.Topics, Data: valid.Data[:31]}, ErrMalformedLog},
		{"empty data", types.Log{Topics: valid.Topics}, ErrMalformedLog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseShowCreated(&tt.log)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ---- getShow ----

func TestCaller_GetShow(t *testing.T) {
	show := sampleShow()
	output, err := PackGetShowResult(show)
	require.NoError(t, err)

	backend := &fakeCaller{output: output}
	caller := NewCaller(backend, testContract)

	got, err := caller.GetShow(context.Background(), big.NewInt(7))
	require.NoError(t, err)

	require.NotNil(t, backend.msg.To)
	assert.Equal(t, testContract, *backend.msg.To)
	assert.Nil(t, backend.block, "state is read at the latest block")
	wantInput, err := ABI().Pack(MethodGetShow, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, wantInput, backend.msg.Data)

	assert.Equal(t, 0, show.ID.Cmp(got.ID))
	assert.Equal(t, show.Name, got.Name)
	assert.Equal(t, show.Description, got.Description)
	assert.Equal(t, show.Location, got.Location)
	assert.Equal(t, 0, show.TicketPrice.Cmp(got.TicketPrice))
	assert.Equal(t, 0, show.TotalTickets.Cmp(got.TotalTickets))
	assert.Equal(t, 0, show.TicketsSold.Cmp(got.TicketsSold))
	assert.Equal(t, show.MetadataURI, got.MetadataURI)
	assert.Equal(t, StatusActive, got.Status)
}

func TestCaller_GetShow_Errors(t *testing.T) {
	t.Run("call failure", func(t *testing.T) {
		caller := NewCaller(&fakeCaller{err: errors.New("execution reverted")}, testContract)
		_, err := caller.GetShow(context.Background(), big.NewInt(1))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to call getShow")
	})

	t.Run("garbage output", func(t *testing.T) {
		caller := NewCaller(&fakeCaller{output: []byte{0x01, 0x02}}, testContract)
		_, err := caller.GetShow(context.Background(), big.NewInt(1))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unpack getShow")
	})
}

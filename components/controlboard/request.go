package controlboard

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"go.viam.com/fakemotor/utils"
)

// Vocab names a request understood by the server.
type Vocab string

// Requests answered by the server.
const (
	VocabGetAxes     = Vocab("get_axes")
	VocabGetLimits   = Vocab("get_limits")
	VocabSetRefAccel = Vocab("set_ref_accel")
	VocabStop        = Vocab("stop")
)

// Reply codes carried by negative replies.
const (
	codeInvalidAxis = "invalid_axis"
	codeUnknown     = "unknown_vocab"
	codeMalformed   = "malformed"
)

// Request is one synchronous call to the server. Axis and Value are ignored by vocabs that do not
// take them.
type Request struct {
	Vocab Vocab
	Axis  int
	Value float64
}

// Reply answers exactly one Request.
type Reply struct {
	Ack  bool
	Axes int
	Min  float64
	Max  float64
	// Seq is the sequence number of the last frame published before the request was handled.
	Seq uint64
	// Code and Error describe why Ack is false.
	Code  string
	Error string
}

func nack(code string, err error) Reply {
	return Reply{Code: code, Error: err.Error()}
}

func (r Request) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"vocab": string(r.Vocab),
		"axis":  float64(r.Axis),
		"value": r.Value,
	})
}

func requestFromProto(in *structpb.Struct) (Request, error) {
	fields := in.AsMap()
	vocab, err := utils.AssertType[string](fields["vocab"])
	if err != nil {
		return Request{}, errors.Wrap(err, "vocab")
	}
	req := Request{Vocab: Vocab(vocab)}
	if raw, ok := fields["axis"]; ok {
		if req.Axis, err = integer(raw); err != nil {
			return Request{}, errors.Wrap(err, "axis")
		}
	}
	if raw, ok := fields["value"]; ok {
		if req.Value, err = utils.AssertType[float64](raw); err != nil {
			return Request{}, errors.Wrap(err, "value")
		}
	}
	return req, nil
}

func (r Reply) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"ack":   r.Ack,
		"axes":  float64(r.Axes),
		"min":   r.Min,
		"max":   r.Max,
		"seq":   float64(r.Seq),
		"code":  r.Code,
		"error": r.Error,
	})
}

func replyFromProto(in *structpb.Struct) (Reply, error) {
	fields := in.GetFields()
	var (
		reply Reply
		err   error
	)
	reply.Ack = fields["ack"].GetBoolValue()
	if reply.Axes, err = integer(fields["axes"].GetNumberValue()); err != nil {
		return Reply{}, errors.Wrap(err, "axes")
	}
	reply.Min = fields["min"].GetNumberValue()
	reply.Max = fields["max"].GetNumberValue()
	seq, err := integer(fields["seq"].GetNumberValue())
	if err != nil || seq < 0 {
		return Reply{}, errors.Errorf("bad seq %v", fields["seq"].GetNumberValue())
	}
	reply.Seq = uint64(seq)
	reply.Code = fields["code"].GetStringValue()
	reply.Error = fields["error"].GetStringValue()
	return reply, nil
}

// commandToProto encodes a velocity command as [axis, value].
func commandToProto(axis int, value float64) *structpb.ListValue {
	return &structpb.ListValue{Values: []*structpb.Value{
		structpb.NewNumberValue(float64(axis)),
		structpb.NewNumberValue(value),
	}}
}

func commandFromProto(in *structpb.ListValue) (int, float64, error) {
	values := in.GetValues()
	if len(values) != 2 {
		return 0, 0, errors.Errorf("expected [axis, value] but got %d values", len(values))
	}
	axisVal, ok := values[0].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, 0, utils.NewUnexpectedTypeError[float64](values[0].AsInterface())
	}
	axis, err := integer(axisVal.NumberValue)
	if err != nil {
		return 0, 0, err
	}
	speed, ok := values[1].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, 0, utils.NewUnexpectedTypeError[float64](values[1].AsInterface())
	}
	return axis, speed.NumberValue, nil
}

func frameToProto(frame JointState) (*structpb.Struct, error) {
	positions := make([]interface{}, len(frame.Positions))
	for i, p := range frame.Positions {
		positions[i] = p
	}
	return structpb.NewStruct(map[string]interface{}{
		"seq":       float64(frame.Seq),
		"time":      frame.Time.Format(time.RFC3339Nano),
		"positions": positions,
	})
}

func frameFromProto(in *structpb.Struct) (JointState, error) {
	fields := in.GetFields()
	seq, err := integer(fields["seq"].GetNumberValue())
	if err != nil || seq < 0 {
		return JointState{}, errors.Errorf("bad seq %v", fields["seq"].GetNumberValue())
	}
	produced, err := time.Parse(time.RFC3339Nano, fields["time"].GetStringValue())
	if err != nil {
		return JointState{}, errors.Wrap(err, "time")
	}
	list := fields["positions"].GetListValue()
	if list == nil {
		return JointState{}, errors.New("missing positions")
	}
	frame := JointState{Seq: uint64(seq), Time: produced, Positions: make([]float64, len(list.GetValues()))}
	for i, v := range list.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return JointState{}, errors.Errorf("position %d is not a number", i)
		}
		frame.Positions[i] = n.NumberValue
	}
	return frame, nil
}

// integer converts a wire number to an int, rejecting fractions.
func integer(raw interface{}) (int, error) {
	f, err := utils.AssertType[float64](raw)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, errors.Errorf("%v is not an integer", f)
	}
	return int(f), nil
}
